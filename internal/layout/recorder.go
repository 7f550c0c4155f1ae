package layout

// InstructionKind identifies a recorded draw call.
type InstructionKind string

const (
	InstructionRect InstructionKind = "rectangle"
	InstructionText InstructionKind = "text"
)

// Instruction is one recorded draw call.
type Instruction struct {
	Kind  InstructionKind `json:"kind"`
	Page  int             `json:"page"`
	Rect  *Rect           `json:"rect,omitempty"`
	Run   *TextRun        `json:"run,omitempty"`
	Patch *PatchStyle     `json:"-"`
	Text  *TextStyle      `json:"-"`
}

// Recorder is a Drawer that keeps every instruction in memory.
type Recorder struct {
	Instructions []Instruction
}

// DrawRectangle records a rectangle.
func (r *Recorder) DrawRectangle(page int, rect Rect, style PatchStyle) error {
	r.Instructions = append(r.Instructions, Instruction{Kind: InstructionRect, Page: page, Rect: &rect, Patch: &style})
	return nil
}

// DrawText records a text run.
func (r *Recorder) DrawText(page int, run TextRun, style TextStyle) error {
	r.Instructions = append(r.Instructions, Instruction{Kind: InstructionText, Page: page, Run: &run, Text: &style})
	return nil
}

// Page returns the instructions recorded for one page.
func (r *Recorder) Page(page int) []Instruction {
	var out []Instruction
	for _, in := range r.Instructions {
		if in.Page == page {
			out = append(out, in)
		}
	}
	return out
}

// Tee forwards draw calls to several drawers in order.
type Tee []Drawer

// DrawRectangle forwards to every drawer.
func (t Tee) DrawRectangle(page int, rect Rect, style PatchStyle) error {
	for _, d := range t {
		if err := d.DrawRectangle(page, rect, style); err != nil {
			return err
		}
	}
	return nil
}

// DrawText forwards to every drawer.
func (t Tee) DrawText(page int, run TextRun, style TextStyle) error {
	for _, d := range t {
		if err := d.DrawText(page, run, style); err != nil {
			return err
		}
	}
	return nil
}
