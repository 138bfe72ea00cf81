package hostrt

import (
	"fmt"
	"os"
	"strconv"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
)

// PrintI64 implements Viper.Console.PrintI64.
func (r *Runtime) PrintI64(v rtval.Value) (rtval.Value, error) {
	fmt.Fprintln(r.Stdout, v.I)
	return rtval.Value{}, nil
}

// PrintF64 implements Viper.Console.PrintF64, matching spec §6's `%.15g`
// user-facing float formatting rule.
func (r *Runtime) PrintF64(v rtval.Value) (rtval.Value, error) {
	fmt.Fprintln(r.Stdout, strconv.FormatFloat(v.F, 'g', 15, 64))
	return rtval.Value{}, nil
}

// PrintStr implements Viper.Console.PrintStr.
func (r *Runtime) PrintStr(v rtval.Value) (rtval.Value, error) {
	fmt.Fprintln(r.Stdout, string(r.strBytes(v)))
	return rtval.Value{}, nil
}

// ConsoleReadLine implements Viper.Console.ReadLine.
func (r *Runtime) ConsoleReadLine() (rtval.Value, error) {
	line, err := r.Stdin.ReadString('\n')
	if err != nil && len(line) == 0 {
		return rtval.Value{}, fmt.Errorf("read line: %w", err)
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return strValue(newHandle(rtval.HeapStr, []byte(line), il.Void)), nil
}

const (
	fileFlagRead  = 0
	fileFlagWrite = 1
)

// FileOpen implements Viper.File.Open. The whole file is read eagerly
// into a lineCursor (reads) or held open for appends (writes); this
// reference runtime favors simplicity over streaming large files.
func (r *Runtime) FileOpen(path, flags rtval.Value) (rtval.Value, error) {
	name := string(r.strBytes(path))
	write := flags.I == fileFlagWrite
	var of openFile
	if write {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return rtval.Value{}, err
		}
		of = openFile{f: f, write: true}
	} else {
		data, err := os.ReadFile(name)
		if err != nil {
			return rtval.Value{}, err
		}
		of = openFile{cursor: newLineCursor(data)}
	}

	r.mu.Lock()
	r.nextFile++
	id := r.nextFile
	r.files[id] = &of
	r.mu.Unlock()
	return rtval.Value{Type: il.PtrTy, Ptr: rtval.Ptr{Raw: id}}, nil
}

func (r *Runtime) lookupFile(p rtval.Value) (*openFile, int64, error) {
	id := p.Ptr.Raw
	r.mu.Lock()
	of, ok := r.files[id]
	r.mu.Unlock()
	if !ok {
		return nil, id, fmt.Errorf("invalid or closed file handle %d", id)
	}
	return of, id, nil
}

// FileClose implements Viper.File.Close.
func (r *Runtime) FileClose(p rtval.Value) (rtval.Value, error) {
	of, id, err := r.lookupFile(p)
	if err != nil {
		return rtval.Value{}, err
	}
	if of.f != nil {
		of.f.Close()
	}
	r.mu.Lock()
	delete(r.files, id)
	r.mu.Unlock()
	return rtval.Value{}, nil
}

// FileReadLine implements Viper.File.ReadLine.
func (r *Runtime) FileReadLine(p rtval.Value) (rtval.Value, error) {
	of, _, err := r.lookupFile(p)
	if err != nil {
		return rtval.Value{}, err
	}
	if of.cursor == nil {
		return rtval.Value{}, fmt.Errorf("file handle was not opened for reading")
	}
	line, ok := of.cursor.ReadLine()
	if !ok {
		return rtval.Value{}, fmt.Errorf("eof")
	}
	return strValue(newHandle(rtval.HeapStr, []byte(line), il.Void)), nil
}

// FileWriteStr implements Viper.File.WriteStr.
func (r *Runtime) FileWriteStr(p, s rtval.Value) (rtval.Value, error) {
	of, _, err := r.lookupFile(p)
	if err != nil {
		return rtval.Value{}, err
	}
	if of.f == nil {
		return rtval.Value{}, fmt.Errorf("file handle was not opened for writing")
	}
	n, err := of.f.Write(r.strBytes(s))
	if err != nil {
		return rtval.Value{}, err
	}
	return rtval.Int(il.I32, int64(n)), nil
}
