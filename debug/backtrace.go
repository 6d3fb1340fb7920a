package debug

import "fmt"

// CallFrame is one entry of a reconstructed call chain: the method pointer
// (constant-pool base) active in that frame and the JPC it was suspended
// at. JOP has no dedicated return-address stack separate from the
// operand stack's invocation convention, so a backtrace is only as deep
// as the caller-supplied chain of (VP, MP) pairs goes.
type CallFrame struct {
	MP  uint32
	JPC uint32
}

// Backtrace walks a chain of saved (VP, MP, returnJPC) frames, reading
// the caller-link word conventionally stored at the base of each
// invocation's local-variable window. linkOffset is the logical stack
// slot, relative to a frame's VP, holding the caller's saved MP/JPC pair
// packed as two consecutive words.
func Backtrace(dc DebuggableCore, vp uint32, linkOffset uint32, maxFrames int) []CallFrame {
	frames := make([]CallFrame, 0, maxFrames)
	for i := 0; i < maxFrames; i++ {
		mp := dc.ReadStack(vp + linkOffset)
		jpc := dc.ReadStack(vp + linkOffset + 1)
		if mp == 0 {
			break
		}
		frames = append(frames, CallFrame{MP: mp, JPC: jpc})
		vp = dc.ReadStack(vp + linkOffset + 2)
	}
	return frames
}

// FormatBacktrace renders frames the way the monitor prints them.
func FormatBacktrace(frames []CallFrame) string {
	s := ""
	for i, f := range frames {
		s += fmt.Sprintf("#%d  mp=0x%08x jpc=0x%08x\n", i, f.MP, f.JPC)
	}
	return s
}
