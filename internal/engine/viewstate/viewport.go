package viewstate

import "github.com/pm100/fresh/internal/engine/buffer"

// Viewport is the visible window a split scrolls over its buffer.
// LeftColumn and wrapping only interact when Wrap is false; a wrapped
// split always starts each visual row at column 0.
type Viewport struct {
	TopByte    ByteOffset
	LeftColumn uint32
	Rows       uint32
	Cols       uint32
	Wrap       bool
}

// Scroll shifts the viewport by deltaRows/deltaCols, reclamping TopByte to
// the nearest line start at or before the result (a scroll never lands
// mid-line) and LeftColumn to zero or above.
func (vp Viewport) Scroll(buf *buffer.Buffer, deltaRows int64, deltaCols int64) Viewport {
	if deltaRows != 0 {
		line := int64(buf.OffsetToPoint(vp.TopByte).Line) + deltaRows
		maxLine := int64(buf.LineCount()) - 1
		if maxLine < 0 {
			maxLine = 0
		}
		if line < 0 {
			line = 0
		}
		if line > maxLine {
			line = maxLine
		}
		vp.TopByte = buf.LineStartOffset(uint32(line))
	}
	if deltaCols != 0 {
		col := int64(vp.LeftColumn) + deltaCols
		if col < 0 {
			col = 0
		}
		vp.LeftColumn = uint32(col)
	}
	return vp
}

// EnsureVisible adjusts the viewport minimally so caret's line/column is
// within the visible rows/cols, matching the teacher's scroll-into-view
// convention of moving just far enough and no further.
func (vp Viewport) EnsureVisible(buf *buffer.Buffer, caret ByteOffset) Viewport {
	p := buf.OffsetToPoint(caret)
	topLine := buf.OffsetToPoint(vp.TopByte).Line

	if vp.Rows > 0 {
		bottomLine := topLine + vp.Rows - 1
		if p.Line < topLine {
			topLine = p.Line
		} else if p.Line > bottomLine {
			topLine = p.Line - (vp.Rows - 1)
		}
		vp.TopByte = buf.LineStartOffset(topLine)
	}

	if !vp.Wrap && vp.Cols > 0 {
		rightCol := vp.LeftColumn + vp.Cols - 1
		if p.Column < vp.LeftColumn {
			vp.LeftColumn = p.Column
		} else if p.Column > rightCol {
			vp.LeftColumn = p.Column - (vp.Cols - 1)
		}
	}
	return vp
}

// AdjustForEdit reclamps TopByte to the nearest line start at or before
// its post-edit position, so an edit above the viewport never leaves
// TopByte pointing mid-line.
func (vp Viewport) AdjustForEdit(buf *buffer.Buffer, p ByteOffset, deletedLen, insertedLen int64, aff Affinity) Viewport {
	vp.TopByte = adjustOffset(vp.TopByte, p, deletedLen, insertedLen, aff)
	line := buf.OffsetToPoint(vp.TopByte).Line
	vp.TopByte = buf.LineStartOffset(line)
	return vp
}
