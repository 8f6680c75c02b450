package session

import "github.com/scala-ide/sdbg/wire"

const outputChunkSize = 4096

// runOutputRelay drains one of the launched target's standard streams in
// fixed-size chunks, emitting each as an OutputChunk. It only runs for
// launched (not attached) targets. It terminates on end-of-stream or when
// the Session is disposed.
func (s *Session) runOutputRelay(stream string, r wire.Reader) {
	defer s.wg.Done()
	buf := make([]byte, outputChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			if !s.send(Envelope{Output: &OutputChunk{Stream: stream, Text: chunk}}) {
				return
			}
		}
		if err != nil {
			return
		}
	}
}
