package main

import (
	"context"

	"vehicle-visualizer/marker"
)

// pump feeds lines to the session one at a time. Taps see every line before
// the session does. Errors are logged and counted by the session itself.
func pump(ctx context.Context, lines <-chan string, sess *marker.Session, taps ...func(string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			for _, tap := range taps {
				tap(line)
			}
			_ = sess.HandleLine(line)
		}
	}
}
