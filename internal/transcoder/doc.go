// Package transcoder runs one external transcoder process (ffmpeg) and
// exposes its standard output as a byte stream.
//
// A Process owns both output pipes. Stdout is handed to the caller as an
// io.Reader; stderr is drained concurrently by the Process so the child can
// never stall on a full diagnostic pipe. The tail of stderr is kept for
// error reports and every line is logged at the level parsed from it.
//
// Termination is two-phase: SIGINT first, SIGKILL once the graceful timeout
// (2s by default) elapses. Terminate is idempotent and may be called from
// any goroutine, including concurrently with reads from Stdout.
//
//	p, err := transcoder.Start(args, transcoder.Options{})
//	if err != nil {
//		return err // *SpawnError
//	}
//	defer p.Terminate()
//	data, _ := io.ReadAll(p.Stdout())
//	if _, err := p.Wait(); err != nil {
//		return err // *ExitError
//	}
package transcoder
