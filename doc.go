// Package advice runs registered task functions through an ordered chain of
// advices (interceptors with before and after hooks).
//
// An advice either proceeds to the next one or concludes the session with a
// result; once concluded, every entered advice is unwound in reverse order.
// Bundled advices time the call (metrics), wrap it in a span (tracing) or
// relocate it into a child process (subprocess).
//
// End-users typically interact with the engine via the Service façade:
//
//	registry.Default().Register("answer", answer)
//	srv, _ := advice.New(advice.WithConfig(cfg))
//	session, err := srv.Run(ctx, model.NewTask("answer"))
//	fmt.Println(session.Result.Value, session.Attachments)
//
// Binaries using the subprocess advice must call subprocess.Serve early in
// main so that the child process can run the requested function.
package advice
