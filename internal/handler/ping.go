package handler

import "github.com/survgo/server/internal/net/packet"

// HandlePing processes MsgPing: [D client timestamp]. The timestamp is
// echoed in MsgPong together with the current tick.
func HandlePing(sess Session, r *packet.Reader, deps *Deps) {
	stamp := r.ReadD()
	if r.Err() != nil {
		return
	}
	out := packet.NewWriterWithType(packet.MsgPong)
	out.WriteD(stamp)
	out.WriteQ(deps.tick())
	sess.Send(out.Bytes())
}
