package pgwire

import (
	"bytes"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(64)
	_ = w.WriteByte(42)
	w.WriteInt16(1234)
	w.WriteInt32(567890)
	w.WriteUint32(0xdeadbeef)
	w.WriteCString("hello")
	w.WriteBytes([]byte{1, 2, 3})

	r := NewReader(w.Bytes())

	b, err := r.ReadByte()
	if err != nil || b != 42 {
		t.Errorf("ReadByte: got %d, err %v, want 42", b, err)
	}

	i16, err := r.ReadInt16()
	if err != nil || i16 != 1234 {
		t.Errorf("ReadInt16: got %d, err %v, want 1234", i16, err)
	}

	i32, err := r.ReadInt32()
	if err != nil || i32 != 567890 {
		t.Errorf("ReadInt32: got %d, err %v, want 567890", i32, err)
	}

	u32, err := r.ReadUint32()
	if err != nil || u32 != 0xdeadbeef {
		t.Errorf("ReadUint32: got %x, err %v, want deadbeef", u32, err)
	}

	s, err := r.ReadCString()
	if err != nil || s != "hello" {
		t.Errorf("ReadCString: got %q, err %v, want 'hello'", s, err)
	}

	data, err := r.ReadBytes(3)
	if err != nil || !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("ReadBytes: got %v, err %v, want [1 2 3]", data, err)
	}

	if r.Remaining() != 0 {
		t.Errorf("Remaining: got %d, want 0", r.Remaining())
	}
}

func TestReaderUnexpectedEOF(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if _, err := r.ReadInt32(); err != ErrUnexpectedEOF {
		t.Errorf("ReadInt32 past end: got %v, want ErrUnexpectedEOF", err)
	}
}

func TestReadCStringRejectsInvalidUTF8(t *testing.T) {
	r := NewReader([]byte{0xff, 0xfe, 0})
	if _, err := r.ReadCString(); err != ErrInvalidUTF8 {
		t.Errorf("ReadCString: got %v, want ErrInvalidUTF8", err)
	}
}

func TestReadCStringMissingTerminator(t *testing.T) {
	r := NewReader([]byte{'a', 'b', 'c'})
	if _, err := r.ReadCString(); err != ErrUnexpectedEOF {
		t.Errorf("ReadCString: got %v, want ErrUnexpectedEOF", err)
	}
}

func TestPatchInt32(t *testing.T) {
	w := NewWriter(16)
	off := w.ReserveInt32()
	w.WriteCString("abc")
	w.PatchInt32(off, int32(w.Len()-off))

	r := NewReader(w.Bytes())
	length, err := r.ReadInt32()
	if err != nil {
		t.Fatalf("ReadInt32: %v", err)
	}
	if int(length) != w.Len()-off {
		t.Errorf("patched length: got %d, want %d", length, w.Len()-off)
	}
}

func TestWriteFrameReadFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, 'Q', []byte("SELECT 1\x00")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	tag, payload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if tag != 'Q' {
		t.Errorf("tag: got %q, want 'Q'", tag)
	}
	if string(payload) != "SELECT 1\x00" {
		t.Errorf("payload: got %q", payload)
	}
}

func TestReadFrameRejectsOversizeLength(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte('Q')
	header := make([]byte, 4)
	// length field far beyond MaxMessageSize
	header[0] = 0x7f
	header[1] = 0xff
	header[2] = 0xff
	header[3] = 0xff
	buf.Write(header)

	if _, _, err := ReadFrame(&buf); err != ErrMessageTooLarge {
		t.Errorf("ReadFrame: got %v, want ErrMessageTooLarge", err)
	}
}

func TestReadStartupPayload(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(32)
	lenOff := w.ReserveInt32()
	w.WriteInt32(ProtocolVersionNumber)
	w.WriteCString("user")
	w.WriteCString("alice")
	_ = w.WriteByte(0)
	w.PatchInt32(lenOff, int32(w.Len()))
	buf.Write(w.Bytes())

	payload, err := ReadStartupPayload(&buf)
	if err != nil {
		t.Fatalf("ReadStartupPayload: %v", err)
	}

	r := NewReader(payload)
	version, err := r.ReadInt32()
	if err != nil || version != ProtocolVersionNumber {
		t.Errorf("version: got %d, err %v, want %d", version, err, ProtocolVersionNumber)
	}
	key, err := r.ReadCString()
	if err != nil || key != "user" {
		t.Errorf("key: got %q, err %v, want 'user'", key, err)
	}
	value, err := r.ReadCString()
	if err != nil || value != "alice" {
		t.Errorf("value: got %q, err %v, want 'alice'", value, err)
	}
}
