package parser

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"github.com/spf13/afero"
)

// BIFF8 record types.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recDateMode   = 0x0022
	recContinue   = 0x003C
	recBoundSheet = 0x0085
	recXF         = 0x00E0
	recMulRK      = 0x00BD
	recSST        = 0x00FC
	recLabelSST   = 0x00FD
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRK         = 0x027E
	recFormat     = 0x041E
	recBOF        = 0x0809
)

const (
	biff8Version  = 0x0600
	bofGlobals    = 0x0005
	bofWorksheet  = 0x0010
	sheetTypeWork = 0x00
)

// workbookStreamName is the compound document stream holding BIFF8 data.
// BIFF5 files store theirs in "Book" and are not supported.
const workbookStreamName = "Workbook"

var errTruncated = errors.New("truncated record")

// LegacyEngine reads BIFF8 (.xls) workbooks stored in OLE2 compound
// documents. Cell values are decoded; number formats are consulted only to
// turn date-formatted numbers into time.Time.
type LegacyEngine struct{}

// Name implements Engine.
func (LegacyEngine) Name() string { return "legacy" }

// ReadSheet implements Engine.
func (LegacyEngine) ReadSheet(fsys afero.Fs, path string) (*Sheet, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := mscfb.New(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleFormat, err)
	}

	var stream []byte
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name != workbookStreamName {
			continue
		}
		stream, err = io.ReadAll(entry)
		if err != nil {
			return nil, err
		}
		break
	}
	if stream == nil {
		return nil, fmt.Errorf("%w: no %s stream", ErrIncompatibleFormat, workbookStreamName)
	}

	sheet, err := decodeWorkbook(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompatibleFormat, err)
	}
	return sheet, nil
}

type record struct {
	typ  uint16
	data []byte
}

// readRecord reads the record at offset off and returns it with the offset
// of the following record.
func readRecord(stream []byte, off int) (record, int, error) {
	if off+4 > len(stream) {
		return record{}, off, errTruncated
	}
	typ := binary.LittleEndian.Uint16(stream[off:])
	size := int(binary.LittleEndian.Uint16(stream[off+2:]))
	end := off + 4 + size
	if end > len(stream) {
		return record{}, off, errTruncated
	}
	return record{typ: typ, data: stream[off+4 : end]}, end, nil
}

// globals holds the workbook-wide records cell decoding depends on.
type globals struct {
	sst      []string
	formats  map[int]string // FORMAT records by format index
	xfFormat []int          // format index of each XF record
	date1904 bool
}

// number types a numeric cell: a time when the cell's XF carries a date
// format, otherwise an int64 or float64.
func (gl *globals) number(ixfe int, f float64) interface{} {
	if gl.isDateXF(ixfe) {
		if t, ok := serialToTime(f, gl.date1904); ok {
			return t
		}
	}
	return normalizeNumber(f)
}

func (gl *globals) isDateXF(ixfe int) bool {
	if ixfe < 0 || ixfe >= len(gl.xfFormat) {
		return false
	}
	ifmt := gl.xfFormat[ixfe]
	if code, ok := gl.formats[ifmt]; ok {
		return isDateFormatCode(code)
	}
	return isDateFormatID(ifmt)
}

type boundSheet struct {
	offset int
	kind   byte
	name   string
}

// decodeWorkbook decodes the globals substream, then the first worksheet.
func decodeWorkbook(stream []byte) (*Sheet, error) {
	rec, off, err := readRecord(stream, 0)
	if err != nil {
		return nil, err
	}
	if err := checkBOF(rec, bofGlobals); err != nil {
		return nil, err
	}

	gl := &globals{formats: make(map[int]string)}
	var sheets []boundSheet
	var sstSegs [][]byte
	inSST := false
	for {
		rec, off, err = readRecord(stream, off)
		if err != nil {
			return nil, fmt.Errorf("globals: %w", err)
		}
		if rec.typ == recEOF {
			break
		}
		switch rec.typ {
		case recSST:
			sstSegs = [][]byte{rec.data}
			inSST = true
			continue
		case recContinue:
			if inSST {
				sstSegs = append(sstSegs, rec.data)
			}
			continue
		case recBoundSheet:
			bs, err := decodeBoundSheet(rec.data)
			if err != nil {
				return nil, err
			}
			sheets = append(sheets, bs)
		case recFormat:
			ifmt, code, err := decodeFormat(rec.data)
			if err != nil {
				return nil, fmt.Errorf("format: %w", err)
			}
			gl.formats[ifmt] = code
		case recXF:
			if len(rec.data) < 4 {
				return nil, errTruncated
			}
			gl.xfFormat = append(gl.xfFormat, int(binary.LittleEndian.Uint16(rec.data[2:])))
		case recDateMode:
			if len(rec.data) < 2 {
				return nil, errTruncated
			}
			gl.date1904 = binary.LittleEndian.Uint16(rec.data) != 0
		}
		inSST = false
	}

	if gl.sst, err = decodeSST(sstSegs); err != nil {
		return nil, fmt.Errorf("shared strings: %w", err)
	}

	for _, bs := range sheets {
		if bs.kind != sheetTypeWork {
			continue
		}
		grid, err := decodeWorksheet(stream, bs.offset, gl)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", bs.name, err)
		}
		return &Sheet{Name: bs.name, Grid: grid}, nil
	}
	return nil, errors.New("workbook has no worksheets")
}

func checkBOF(rec record, kind uint16) error {
	if rec.typ != recBOF || len(rec.data) < 4 {
		return errors.New("missing BOF record")
	}
	if v := binary.LittleEndian.Uint16(rec.data); v != biff8Version {
		return fmt.Errorf("unsupported BIFF version 0x%04x", v)
	}
	if k := binary.LittleEndian.Uint16(rec.data[2:]); k != kind {
		return fmt.Errorf("unexpected substream type 0x%04x", k)
	}
	return nil
}

func decodeBoundSheet(data []byte) (boundSheet, error) {
	if len(data) < 8 {
		return boundSheet{}, errTruncated
	}
	bs := boundSheet{
		offset: int(binary.LittleEndian.Uint32(data)),
		kind:   data[5],
	}
	cch := int(data[6])
	r := &segReader{segs: [][]byte{data[8:]}}
	name, err := r.chars(cch, data[7]&0x01 != 0)
	if err != nil {
		return boundSheet{}, err
	}
	bs.name = name
	return bs, nil
}

// decodeFormat decodes a FORMAT record into its index and format code.
func decodeFormat(data []byte) (int, string, error) {
	if len(data) < 5 {
		return 0, "", errTruncated
	}
	r := &segReader{segs: [][]byte{data[5:]}}
	code, err := r.chars(int(binary.LittleEndian.Uint16(data[2:])), data[4]&0x01 != 0)
	if err != nil {
		return 0, "", err
	}
	return int(binary.LittleEndian.Uint16(data)), code, nil
}

// decodeSST decodes the shared string table, which may span CONTINUE
// records.
func decodeSST(segs [][]byte) ([]string, error) {
	if len(segs) == 0 {
		return nil, nil
	}
	r := &segReader{segs: segs}
	if _, err := r.readUint32(); err != nil {
		return nil, err
	}
	unique, err := r.readUint32()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, unique)
	for i := uint32(0); i < unique; i++ {
		s, err := r.richString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeWorksheet decodes cell records of the worksheet substream starting
// at offset.
func decodeWorksheet(stream []byte, offset int, gl *globals) ([][]interface{}, error) {
	rec, off, err := readRecord(stream, offset)
	if err != nil {
		return nil, err
	}
	if err := checkBOF(rec, bofWorksheet); err != nil {
		return nil, err
	}

	g := &grid{}
	pendingRow, pendingCol := -1, -1
	for {
		rec, off, err = readRecord(stream, off)
		if err != nil {
			return nil, err
		}
		d := rec.data
		switch rec.typ {
		case recEOF:
			return g.rows, nil
		case recLabelSST:
			if len(d) < 10 {
				return nil, errTruncated
			}
			idx := int(binary.LittleEndian.Uint32(d[6:]))
			if idx >= len(gl.sst) {
				return nil, fmt.Errorf("shared string %d out of range", idx)
			}
			g.set(d, gl.sst[idx])
		case recNumber:
			if len(d) < 14 {
				return nil, errTruncated
			}
			g.set(d, gl.number(xfIndex(d), math.Float64frombits(binary.LittleEndian.Uint64(d[6:]))))
		case recRK:
			if len(d) < 10 {
				return nil, errTruncated
			}
			g.set(d, gl.number(xfIndex(d), rkNumber(binary.LittleEndian.Uint32(d[6:]))))
		case recMulRK:
			if len(d) < 6 {
				return nil, errTruncated
			}
			row := int(binary.LittleEndian.Uint16(d))
			col := int(binary.LittleEndian.Uint16(d[2:]))
			for p := 4; p+6 <= len(d)-2; p += 6 {
				ixfe := int(binary.LittleEndian.Uint16(d[p:]))
				g.put(row, col, gl.number(ixfe, rkNumber(binary.LittleEndian.Uint32(d[p+2:]))))
				col++
			}
		case recLabel:
			if len(d) < 9 {
				return nil, errTruncated
			}
			r := &segReader{segs: [][]byte{d[9:]}}
			s, err := r.chars(int(binary.LittleEndian.Uint16(d[6:])), d[8]&0x01 != 0)
			if err != nil {
				return nil, err
			}
			g.set(d, s)
		case recBoolErr:
			if len(d) < 8 {
				return nil, errTruncated
			}
			if d[7] == 0 {
				g.set(d, d[6] != 0)
			}
		case recFormula:
			if len(d) < 14 {
				return nil, errTruncated
			}
			res := d[6:14]
			if res[6] != 0xFF || res[7] != 0xFF {
				g.set(d, gl.number(xfIndex(d), math.Float64frombits(binary.LittleEndian.Uint64(res))))
				continue
			}
			switch res[0] {
			case 0x00:
				pendingRow = int(binary.LittleEndian.Uint16(d))
				pendingCol = int(binary.LittleEndian.Uint16(d[2:]))
			case 0x01:
				g.set(d, res[2] != 0)
			}
		case recString:
			if pendingRow < 0 || len(d) < 3 {
				continue
			}
			r := &segReader{segs: [][]byte{d[3:]}}
			s, err := r.chars(int(binary.LittleEndian.Uint16(d)), d[2]&0x01 != 0)
			if err != nil {
				return nil, err
			}
			g.put(pendingRow, pendingCol, s)
			pendingRow, pendingCol = -1, -1
		}
	}
}

// rkNumber decodes the packed RK number representation.
func rkNumber(rk uint32) float64 {
	var f float64
	if rk&0x02 != 0 {
		f = float64(int32(rk) >> 2)
	} else {
		f = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		f /= 100
	}
	return f
}

// xfIndex returns the XF index found after the row and column of a cell
// record.
func xfIndex(data []byte) int {
	return int(binary.LittleEndian.Uint16(data[4:]))
}

// grid accumulates cells addressed by zero-based row and column.
type grid struct {
	rows [][]interface{}
}

// set stores v at the row/column found in the first four bytes of a cell
// record.
func (g *grid) set(data []byte, v interface{}) {
	g.put(int(binary.LittleEndian.Uint16(data)), int(binary.LittleEndian.Uint16(data[2:])), v)
}

func (g *grid) put(row, col int, v interface{}) {
	for len(g.rows) <= row {
		g.rows = append(g.rows, nil)
	}
	r := g.rows[row]
	for len(r) <= col {
		r = append(r, nil)
	}
	r[col] = v
	g.rows[row] = r
}

// segReader reads little-endian values across the data of a record and its
// CONTINUE records. Character data split at a record boundary resumes with
// a fresh option byte.
type segReader struct {
	segs [][]byte
	seg  int
	off  int
}

func (r *segReader) advance() bool {
	for r.seg < len(r.segs) && r.off >= len(r.segs[r.seg]) {
		r.seg++
		r.off = 0
	}
	return r.seg < len(r.segs)
}

func (r *segReader) readByte() (byte, error) {
	if !r.advance() {
		return 0, errTruncated
	}
	b := r.segs[r.seg][r.off]
	r.off++
	return b, nil
}

func (r *segReader) readUint16() (uint16, error) {
	lo, err := r.readByte()
	if err != nil {
		return 0, err
	}
	hi, err := r.readByte()
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

func (r *segReader) readUint32() (uint32, error) {
	lo, err := r.readUint16()
	if err != nil {
		return 0, err
	}
	hi, err := r.readUint16()
	if err != nil {
		return 0, err
	}
	return uint32(lo) | uint32(hi)<<16, nil
}

func (r *segReader) skip(n int) error {
	for n > 0 {
		if !r.advance() {
			return errTruncated
		}
		k := len(r.segs[r.seg]) - r.off
		if k > n {
			k = n
		}
		r.off += k
		n -= k
	}
	return nil
}

// chars reads n characters, compressed (one byte each) unless high is set.
func (r *segReader) chars(n int, high bool) (string, error) {
	units := make([]uint16, 0, n)
	for len(units) < n {
		if r.seg >= len(r.segs) {
			return "", errTruncated
		}
		seg := r.segs[r.seg]
		if r.off >= len(seg) {
			r.seg++
			r.off = 0
			opt, err := r.readByte()
			if err != nil {
				return "", err
			}
			high = opt&0x01 != 0
			continue
		}
		if high {
			if r.off+2 > len(seg) {
				return "", errTruncated
			}
			units = append(units, binary.LittleEndian.Uint16(seg[r.off:]))
			r.off += 2
		} else {
			units = append(units, uint16(seg[r.off]))
			r.off++
		}
	}
	return string(utf16.Decode(units)), nil
}

// richString reads an XLUnicodeRichExtendedString.
func (r *segReader) richString() (string, error) {
	cch, err := r.readUint16()
	if err != nil {
		return "", err
	}
	opt, err := r.readByte()
	if err != nil {
		return "", err
	}
	var runs, ext int
	if opt&0x08 != 0 {
		n, err := r.readUint16()
		if err != nil {
			return "", err
		}
		runs = int(n)
	}
	if opt&0x04 != 0 {
		n, err := r.readUint32()
		if err != nil {
			return "", err
		}
		ext = int(n)
	}
	s, err := r.chars(int(cch), opt&0x01 != 0)
	if err != nil {
		return "", err
	}
	if err := r.skip(4 * runs); err != nil {
		return "", err
	}
	if err := r.skip(ext); err != nil {
		return "", err
	}
	return s, nil
}
