// Package audithook writes an audit record for each step of a job's life,
// filed under the tenant the job was dispatched for.
//
//	eng, err := engine.Build(d,
//	    engine.WithExtension(audithook.New(audithook.LogSink(auditLogger),
//	        audithook.Only(audithook.Failed, audithook.Unresolved),
//	    )),
//	)
//
// Sink errors are logged and dropped. An audit outage never fails a job.
package audithook
