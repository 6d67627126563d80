package script

import (
	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/rangebuf/internal/engine/buffer"
	"github.com/dshills/rangebuf/internal/engine/rangetree"
)

const clipTypeName = "rangebuf.clip"

// clip is a copied range held by a script.
type clip struct {
	snap *buffer.Snapshot
}

func (c *clip) release() {
	if c.snap != nil {
		c.snap.Release()
		c.snap = nil
	}
}

// registerBuffer installs the buf table and the clip metatable.
func (r *Runner) registerBuffer() {
	L := r.L

	mt := L.NewTypeMetatable(clipTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"len":     r.clipLen,
		"text":    r.clipText,
		"release": r.clipRelease,
	}))

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"len":        r.bufLen,
		"lines":      r.lineCount,
		"line":       r.line,
		"line_start": r.lineStart,
		"raw":        r.raw,
		"insert":     r.insert,
		"delete":     r.delete,
		"replace":    r.replace,
		"copy":       r.copy,
		"paste":      r.paste,
		"fuse":       r.fuse,
		"group":      r.group,
		"save":       r.save,
		"path":       r.path,
	})
	L.SetGlobal("buf", mod)
}

// checkOffset reads a non-negative byte offset argument.
func checkOffset(L *lua.LState, n int) buffer.ByteOffset {
	v := L.CheckInt64(n)
	if v < 0 {
		L.ArgError(n, "offset must be non-negative")
	}
	return buffer.ByteOffset(v)
}

// checkRange reads a [start, end) pair of arguments.
func checkRange(L *lua.LState, n int) (buffer.ByteOffset, buffer.ByteOffset) {
	start := checkOffset(L, n)
	end := checkOffset(L, n+1)
	if end < start {
		L.ArgError(n+1, "end must be >= start")
	}
	return start, end
}

// checkLine reads a one-based line number and returns it zero-based.
func checkLine(L *lua.LState, n int) uint32 {
	line := L.CheckInt(n)
	if line < 1 {
		L.ArgError(n, "line numbers start at 1")
	}
	return uint32(line - 1)
}

// len() -> number
func (r *Runner) bufLen(L *lua.LState) int {
	L.Push(lua.LNumber(r.doc.Len()))
	return 1
}

// lines() -> number
func (r *Runner) lineCount(L *lua.LState) int {
	L.Push(lua.LNumber(r.doc.LineCount()))
	return 1
}

// line(n) -> string
func (r *Runner) line(L *lua.LState) int {
	L.Push(lua.LString(r.doc.LineText(checkLine(L, 1))))
	return 1
}

// line_start(n) -> number
func (r *Runner) lineStart(L *lua.LState) int {
	L.Push(lua.LNumber(r.doc.LineStartOffset(checkLine(L, 1))))
	return 1
}

// raw(start, end) -> string
func (r *Runner) raw(L *lua.LState) int {
	start, end := checkRange(L, 1)
	L.Push(lua.LString(r.doc.TextRange(start, end)))
	return 1
}

// insert(offset, text [, group]) -> end_offset
func (r *Runner) insert(L *lua.LState) int {
	offset := checkOffset(L, 1)
	text := L.CheckString(2)

	group := rangetree.NoGroup
	if s := L.OptString(3, ""); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			L.ArgError(3, "invalid group id")
		}
		group = rangetree.FuseGroup(id)
	}

	end, err := r.doc.InsertGroup(offset, text, group)
	if err != nil {
		L.RaiseError("insert: %v", err)
	}
	L.Push(lua.LNumber(end))
	return 1
}

// delete(start, end)
func (r *Runner) delete(L *lua.LState) int {
	start, end := checkRange(L, 1)
	if err := r.doc.Delete(start, end); err != nil {
		L.RaiseError("delete: %v", err)
	}
	return 0
}

// replace(start, end, text) -> end_offset
func (r *Runner) replace(L *lua.LState) int {
	start, end := checkRange(L, 1)
	text := L.CheckString(3)

	newEnd, err := r.doc.Replace(start, end, text)
	if err != nil {
		L.RaiseError("replace: %v", err)
	}
	L.Push(lua.LNumber(newEnd))
	return 1
}

// copy(start, end) -> clip
func (r *Runner) copy(L *lua.LState) int {
	start, end := checkRange(L, 1)
	snap, err := r.doc.Copy(start, end)
	if err != nil {
		L.RaiseError("copy: %v", err)
	}

	c := &clip{snap: snap}
	r.clips[c] = struct{}{}

	ud := L.NewUserData()
	ud.Value = c
	L.SetMetatable(ud, L.GetTypeMetatable(clipTypeName))
	L.Push(ud)
	return 1
}

// paste(offset, clip) -> end_offset
func (r *Runner) paste(L *lua.LState) int {
	offset := checkOffset(L, 1)
	c := r.checkClip(L, 2)

	end, err := r.doc.Paste(offset, c.snap)
	if err != nil {
		L.RaiseError("paste: %v", err)
	}
	L.Push(lua.LNumber(end))
	return 1
}

// fuse([start, end])
func (r *Runner) fuse(L *lua.LState) int {
	start := buffer.ByteOffset(L.OptInt64(1, 0))
	end := buffer.ByteOffset(L.OptInt64(2, r.doc.Len()))
	r.doc.Fuse(start, end)
	return 0
}

// group() -> string
func (r *Runner) group(L *lua.LState) int {
	g := rangetree.NewFuseGroup()
	L.Push(lua.LString(uuid.UUID(g).String()))
	return 1
}

// save([path])
func (r *Runner) save(L *lua.LState) int {
	if err := r.doc.Save(L.OptString(1, "")); err != nil {
		L.RaiseError("save: %v", err)
	}
	return 0
}

// path() -> string
func (r *Runner) path(L *lua.LState) int {
	L.Push(lua.LString(r.doc.Path()))
	return 1
}

// checkClip reads a live clip argument.
func (r *Runner) checkClip(L *lua.LState, n int) *clip {
	ud := L.CheckUserData(n)
	c, ok := ud.Value.(*clip)
	if !ok {
		L.ArgError(n, "clip expected")
	}
	if c.snap == nil {
		L.ArgError(n, "clip was released")
	}
	return c
}

func (r *Runner) clipLen(L *lua.LState) int {
	L.Push(lua.LNumber(r.checkClip(L, 1).snap.Len()))
	return 1
}

func (r *Runner) clipText(L *lua.LState) int {
	L.Push(lua.LString(r.checkClip(L, 1).snap.Text()))
	return 1
}

func (r *Runner) clipRelease(L *lua.LState) int {
	ud := L.CheckUserData(1)
	if c, ok := ud.Value.(*clip); ok {
		c.release()
		delete(r.clips, c)
	}
	return 0
}
