// Package lineindex implements LineIndex: a sparse, confidence-tagged
// cache of line-start anchors over a ChunkTree, bounding the cost of
// converting between byte offsets and line numbers in very large
// buffers.
//
// ChunkTree's TextSummary already tracks an exact line count for any
// subtree in O(log N), so small buffers never need this package at
// all; LineIndex exists for the case a buffer's sheer line count makes
// it undesirable to treat every line number as trustworthy the instant
// it is computed. Rather than always walking the tree for an exact
// answer, a lookup far from anything LineIndex has already confirmed
// returns an Estimated line number computed from the running
// bytes-per-line average, snapped to a real line-start byte so the
// position itself is never wrong even when its line label is only
// approximate. Anchors are tracked as point markers in an
// interval.Tree so that AdjustForEdit keeps every anchor's byte offset
// correct in O(log N) per edit; LineIndex keeps the line number and
// confidence for each anchor in a parallel slice, since interval.Payload
// has no room for either.
package lineindex

import (
	"sort"

	"github.com/pm100/fresh/internal/engine/chunktree"
	"github.com/pm100/fresh/internal/engine/interval"
)

// ScanThreshold bounds how many lines away from the nearest reliable
// anchor LineIndex will ask the tree for an exact line start before
// falling back to an estimate instead.
const ScanThreshold = 1024

// defaultAvgLineLen seeds the bytes-per-line estimate before any real
// sample has been taken.
const defaultAvgLineLen = 32.0

// Confidence says how much a Anchor's reported line number can be
// trusted.
type Confidence uint8

const (
	// Exact means Line is the true line number at Byte.
	Exact Confidence = iota
	// Estimated means Byte is a real line-start boundary but Line is a
	// guess, projected from the nearest reliable anchor using the
	// average line length seen so far.
	Estimated
	// RelativeTo means Line is only meaningful relative to another
	// anchor (RelativeTo), not as an absolute line number. No anchor in
	// this package is created with it; lookups treat it as reliable,
	// the same as Exact.
	RelativeTo
)

func (c Confidence) String() string {
	switch c {
	case Exact:
		return "exact"
	case Estimated:
		return "estimated"
	case RelativeTo:
		return "relative"
	default:
		return "unknown"
	}
}

// Anchor is one sparse checkpoint: a byte offset, its line number, and
// how much that line number can be trusted.
type Anchor struct {
	Byte       int64
	Line       uint32
	Confidence Confidence
	RelativeTo interval.MarkerID
}

type anchorRecord struct {
	id         interval.MarkerID
	line       uint32
	confidence Confidence
	relativeTo interval.MarkerID
}

// LineIndex wraps a ChunkTree with sparse, edit-adjusted line anchors.
// It starts with a single Exact anchor at the document's start and
// learns more as callers ask about lines or offsets far from what it
// already knows.
type LineIndex struct {
	anchors    *interval.Tree
	records    []anchorRecord // sorted by line ascending
	avgLineLen float64
}

// New builds a LineIndex lazily seeded with one Exact anchor at
// (byte 0, line 0); everything beyond that is discovered on demand.
func New(tree chunktree.ChunkTree) *LineIndex {
	li := &LineIndex{anchors: interval.New()}
	li.insertAnchor(0, 0, Exact, 0)
	return li
}

// OnEdit must be called after every ChunkTree edit so anchor byte
// offsets stay correct. If the edit neither removed nor introduced a
// newline, every anchor's line number is still correct and only the
// byte positions need adjusting. Otherwise every anchor at or after
// the edit point has its line number thrown into doubt and is marked
// Estimated, to be rediscovered the next time it is asked about.
func (li *LineIndex) OnEdit(at int64, oldText, newText string) {
	deletedLen := int64(len(oldText))
	newLen := int64(len(newText))
	li.anchors.AdjustForEdit(at, deletedLen, newLen)

	if !containsNewline(oldText) && !containsNewline(newText) {
		return
	}
	li.invalidateFrom(at)
}

func containsNewline(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return true
		}
	}
	return false
}

func (li *LineIndex) invalidateFrom(at int64) {
	for i := range li.records {
		if li.records[i].line == 0 {
			continue // the genesis anchor at byte 0 is always exact
		}
		m, err := li.anchors.Get(li.records[i].id)
		if err != nil {
			continue
		}
		if m.Start >= at {
			li.records[i].confidence = Estimated
		}
	}
}

// LineToByte converts a line number to a byte offset, following the
// same discovery rule ByteToLine uses in reverse: scan for an exact
// answer when close to a reliable anchor, estimate when far.
func (li *LineIndex) LineToByte(tree chunktree.ChunkTree, line uint32) (int64, Confidence) {
	if line == 0 {
		return 0, Exact
	}

	rec, anchorByte, ok := li.nearestReliableBeforeLine(line)
	if !ok {
		exact := int64(tree.LineStartOffset(line))
		li.recordExact(exact, line)
		return exact, Exact
	}

	lineDelta := int64(line) - int64(rec.line)
	if lineDelta <= ScanThreshold {
		exact := int64(tree.LineStartOffset(line))
		li.recordExact(exact, line)
		return exact, Exact
	}

	estByte := anchorByte + int64(float64(lineDelta)*li.avgOrDefault())
	snapped := li.snapToLineStart(tree, estByte)
	li.recordEstimated(snapped, line)
	return snapped, Estimated
}

// ByteToLine converts a byte offset to a line number, discovering
// (and caching) an exact answer when the offset is close to a
// reliable anchor, estimating from the running average otherwise.
func (li *LineIndex) ByteToLine(tree chunktree.ChunkTree, offset int64) (uint32, Confidence) {
	if offset <= 0 {
		return 0, Exact
	}

	if rec, ok := li.reliableAnchorAtByte(offset); ok {
		return rec.line, rec.confidence
	}

	rec, anchorByte, ok := li.nearestReliableBeforeByte(offset)
	if !ok {
		line := tree.OffsetToPoint(chunktree.ByteOffset(offset)).Line
		li.recordExact(int64(tree.LineStartOffset(line)), line)
		return line, Exact
	}

	byteDelta := offset - anchorByte
	estimatedLineDelta := int64(float64(byteDelta) / li.avgOrDefault())
	if estimatedLineDelta <= ScanThreshold {
		line := tree.OffsetToPoint(chunktree.ByteOffset(offset)).Line
		li.recordExact(int64(tree.LineStartOffset(line)), line)
		return line, Exact
	}

	line := rec.line + uint32(estimatedLineDelta)
	li.recordEstimated(li.snapToLineStart(tree, offset), line)
	return line, Estimated
}

// LineCount returns the buffer's line count. ChunkTree's TextSummary
// tracks this exactly for any subtree, so it is always exact here; the
// bool return exists so callers that branch on estimated-vs-exact (the
// same way they must for LineToByte/ByteToLine) don't need a special
// case for the count.
func (li *LineIndex) LineCount(tree chunktree.ChunkTree) (uint32, bool) {
	return tree.LineCount(), false
}

// PinExact forces every line whose start falls within [startByte,
// endByte] to have an Exact anchor recorded, so a caller that is about
// to render or diff that range never sees an Estimated line number for
// it. A viewport's visible range is the expected caller.
func (li *LineIndex) PinExact(tree chunktree.ChunkTree, startByte, endByte int64) {
	if startByte > endByte {
		startByte, endByte = endByte, startByte
	}
	startLine := tree.OffsetToPoint(chunktree.ByteOffset(startByte)).Line
	endLine := tree.OffsetToPoint(chunktree.ByteOffset(endByte)).Line
	for line := startLine; line <= endLine; line++ {
		li.recordExact(int64(tree.LineStartOffset(line)), line)
	}
}

// --- anchor bookkeeping ---

func (li *LineIndex) avgOrDefault() float64 {
	if li.avgLineLen <= 0 {
		return defaultAvgLineLen
	}
	return li.avgLineLen
}

func (li *LineIndex) snapToLineStart(tree chunktree.ChunkTree, byteOff int64) int64 {
	treeLen := int64(tree.Len())
	if byteOff <= 0 {
		return 0
	}
	if byteOff > treeLen {
		byteOff = treeLen
	}
	line := tree.OffsetToPoint(chunktree.ByteOffset(byteOff)).Line
	return int64(tree.LineStartOffset(line))
}

// nearestReliableBeforeLine returns the Exact or RelativeTo anchor
// with the greatest line number <= target, skipping Estimated ones.
func (li *LineIndex) nearestReliableBeforeLine(target uint32) (anchorRecord, int64, bool) {
	best := -1
	for i, r := range li.records {
		if r.confidence == Estimated {
			continue
		}
		if r.line > target {
			break
		}
		best = i
	}
	if best < 0 {
		return anchorRecord{}, 0, false
	}
	m, err := li.anchors.Get(li.records[best].id)
	if err != nil {
		return anchorRecord{}, 0, false
	}
	return li.records[best], m.Start, true
}

// nearestReliableBeforeByte returns the Exact or RelativeTo anchor
// with the greatest current byte offset <= target.
func (li *LineIndex) nearestReliableBeforeByte(target int64) (anchorRecord, int64, bool) {
	best := -1
	var bestByte int64
	for i, r := range li.records {
		if r.confidence == Estimated {
			continue
		}
		m, err := li.anchors.Get(r.id)
		if err != nil || m.Start > target {
			continue
		}
		if best < 0 || m.Start > bestByte {
			best = i
			bestByte = m.Start
		}
	}
	if best < 0 {
		return anchorRecord{}, 0, false
	}
	return li.records[best], bestByte, true
}

func (li *LineIndex) reliableAnchorAtByte(offset int64) (anchorRecord, bool) {
	for _, r := range li.records {
		if r.confidence == Estimated {
			continue
		}
		m, err := li.anchors.Get(r.id)
		if err == nil && m.Start == offset {
			return r, true
		}
	}
	return anchorRecord{}, false
}

func (li *LineIndex) recordExact(byteOff int64, line uint32) {
	if prevRec, prevByte, ok := li.nearestReliableBeforeLine(line); ok && prevRec.line < line {
		li.sampleAvgLineLen(prevByte, byteOff, int64(line)-int64(prevRec.line))
	}
	li.insertAnchor(byteOff, line, Exact, 0)
}

func (li *LineIndex) recordEstimated(byteOff int64, line uint32) {
	li.insertAnchor(byteOff, line, Estimated, 0)
}

func (li *LineIndex) sampleAvgLineLen(prevByte, byteOff, lineDelta int64) {
	if lineDelta <= 0 {
		return
	}
	byteDelta := byteOff - prevByte
	if byteDelta <= 0 {
		return
	}
	sample := float64(byteDelta) / float64(lineDelta)
	if li.avgLineLen <= 0 {
		li.avgLineLen = sample
		return
	}
	li.avgLineLen = li.avgLineLen*0.5 + sample*0.5
}

func (li *LineIndex) insertAnchor(byteOff int64, line uint32, confidence Confidence, relTo interval.MarkerID) interval.MarkerID {
	startAff, endAff := interval.DefaultAffinity(interval.KindLine)
	id := li.anchors.Insert(byteOff, byteOff, interval.Payload{Kind: interval.KindLine}, startAff, endAff)

	rec := anchorRecord{id: id, line: line, confidence: confidence, relativeTo: relTo}
	idx := sort.Search(len(li.records), func(i int) bool { return li.records[i].line >= line })
	li.records = append(li.records, anchorRecord{})
	copy(li.records[idx+1:], li.records[idx:])
	li.records[idx] = rec
	return id
}
