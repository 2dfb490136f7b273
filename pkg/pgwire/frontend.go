package pgwire

// FrontendMessage is implemented by every client-originated message
// variant. Encode appends the message's framed wire bytes to dst and
// returns the extended slice.
type FrontendMessage interface {
	Encode(dst []byte) []byte
}

// Encode serializes msg into a freshly allocated byte slice. It is the
// `encode(msg) -> bytes` entry point named in spec.md §4.4 and §6.
func Encode(msg FrontendMessage) []byte {
	return msg.Encode(nil)
}

// KV is one key/value pair carried in a StartupMessage.
type KV struct{ Key, Value string }

// StartupMessage is the untagged, length-prefixed first message a
// client sends. Params is encoded in order: callers that need the
// canonical ("user" first, then "database" if distinct, then extras)
// ordering should build it with NewStartupMessage.
type StartupMessage struct{ Params []KV }

// NewStartupMessage builds a StartupMessage with "user" always first,
// "database" next when it differs from user, then any extra options.
// The extra options follow map iteration order, so their relative order
// is not defined.
func NewStartupMessage(user, database string, options map[string]string) StartupMessage {
	params := []KV{{Key: "user", Value: user}}
	if database != "" && database != user {
		params = append(params, KV{Key: "database", Value: database})
	}
	for k, v := range options {
		params = append(params, KV{Key: k, Value: v})
	}
	return StartupMessage{Params: params}
}

func (m StartupMessage) Encode(dst []byte) []byte {
	w := &Writer{buf: dst}
	lenOff := w.ReserveInt32()
	w.WriteInt32(ProtocolVersionNumber)
	for _, kv := range m.Params {
		w.WriteCString(kv.Key)
		w.WriteCString(kv.Value)
	}
	_ = w.WriteByte(0)
	w.PatchInt32(lenOff, int32(w.Len()-lenOff))
	return w.buf
}

// SSLRequest asks the server whether it will accept an SSL-wrapped
// connection, before any other startup traffic.
type SSLRequest struct{}

func (SSLRequest) Encode(dst []byte) []byte {
	w := &Writer{buf: dst}
	w.WriteInt32(8)
	w.WriteInt32(SSLRequestCode)
	return w.buf
}

// GSSEncRequest asks the server whether it will accept a GSSAPI-wrapped
// connection.
type GSSEncRequest struct{}

func (GSSEncRequest) Encode(dst []byte) []byte {
	w := &Writer{buf: dst}
	w.WriteInt32(8)
	w.WriteInt32(GSSENCRequestCode)
	return w.buf
}

// CancelRequest is sent on a fresh connection to ask the server to
// cancel an in-progress query on the connection identified by
// BackendKeyData. The core only encodes it; sending it over a second
// connection is the embedder's responsibility (spec.md §5).
type CancelRequest struct{ ProcessID, SecretKey int32 }

func (m CancelRequest) Encode(dst []byte) []byte {
	w := &Writer{buf: dst}
	w.WriteInt32(16)
	w.WriteInt32(CancelRequestCode)
	w.WriteInt32(m.ProcessID)
	w.WriteInt32(m.SecretKey)
	return w.buf
}

// PasswordMessage carries a cleartext or MD5-hashed password response.
type PasswordMessage struct{ Password string }

func (m PasswordMessage) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagPassword, func(w *Writer) {
		w.WriteCString(m.Password)
	})
}

// SASLInitialResponse begins a SASL (SCRAM-SHA-256) exchange.
type SASLInitialResponse struct {
	Mechanism       string
	InitialResponse []byte
}

func (m SASLInitialResponse) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagPassword, func(w *Writer) {
		w.WriteCString(m.Mechanism)
		w.WriteInt32(int32(len(m.InitialResponse)))
		w.WriteBytes(m.InitialResponse)
	})
}

// SASLResponse carries a subsequent SASL exchange message (client-final).
type SASLResponse struct{ Data []byte }

func (m SASLResponse) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagPassword, func(w *Writer) {
		w.WriteBytes(m.Data)
	})
}

// Query issues a simple-query-protocol statement.
type Query struct{ SQL string }

func (m Query) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagQuery, func(w *Writer) {
		w.WriteCString(m.SQL)
	})
}

// Parse creates a prepared statement for the extended query protocol.
type Parse struct {
	Name      string
	SQL       string
	ParamOIDs []uint32
}

func (m Parse) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagParse, func(w *Writer) {
		w.WriteCString(m.Name)
		w.WriteCString(m.SQL)
		w.WriteUint16(uint16(len(m.ParamOIDs)))
		for _, oid := range m.ParamOIDs {
			w.WriteUint32(oid)
		}
	})
}

// Bind creates a portal from a prepared statement and parameter values.
// A nil entry in Params encodes as SQL NULL.
type Bind struct {
	Portal        string
	Statement     string
	ParamFormats  []FormatCode
	Params        [][]byte
	ResultFormats []FormatCode
}

func (m Bind) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagBind, func(w *Writer) {
		w.WriteCString(m.Portal)
		w.WriteCString(m.Statement)
		w.WriteUint16(uint16(len(m.ParamFormats)))
		for _, f := range m.ParamFormats {
			w.WriteInt16(f.ToInt())
		}
		w.WriteUint16(uint16(len(m.Params)))
		for _, p := range m.Params {
			if p == nil {
				w.WriteInt32(-1)
				continue
			}
			w.WriteInt32(int32(len(p)))
			w.WriteBytes(p)
		}
		w.WriteUint16(uint16(len(m.ResultFormats)))
		for _, f := range m.ResultFormats {
			w.WriteInt16(f.ToInt())
		}
	})
}

// DescribeKind selects whether Describe/Close targets a prepared
// statement or a portal.
type DescribeKind byte

const (
	DescribeStatement DescribeKind = 'S'
	DescribePortal    DescribeKind = 'P'
)

// Describe requests a RowDescription/ParameterDescription for a
// statement or portal.
type Describe struct {
	Kind DescribeKind
	Name string
}

func (m Describe) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagDescribe, func(w *Writer) {
		_ = w.WriteByte(byte(m.Kind))
		w.WriteCString(m.Name)
	})
}

// Close closes a prepared statement or portal.
type Close struct {
	Kind DescribeKind
	Name string
}

func (m Close) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagClose, func(w *Writer) {
		_ = w.WriteByte(byte(m.Kind))
		w.WriteCString(m.Name)
	})
}

// Execute runs a bound portal, returning at most MaxRows rows (0 means
// unlimited).
type Execute struct {
	Portal  string
	MaxRows int32
}

func (m Execute) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagExecute, func(w *Writer) {
		w.WriteCString(m.Portal)
		w.WriteInt32(m.MaxRows)
	})
}

// Sync closes out an extended-query cycle.
type Sync struct{}

func (Sync) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagSync, func(*Writer) {})
}

// Flush asks the server to deliver any pending response without
// closing the extended-query cycle.
type Flush struct{}

func (Flush) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagFlush, func(*Writer) {})
}

// CopyData carries one chunk of COPY payload, in either direction.
type CopyDataFrontend struct{ Data []byte }

func (m CopyDataFrontend) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagCopyData, func(w *Writer) {
		w.WriteBytes(m.Data)
	})
}

// CopyDone signals the end of a successful COPY.
type CopyDoneFrontend struct{}

func (CopyDoneFrontend) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagCopyDone, func(*Writer) {})
}

// CopyFail aborts a COPY with an explanatory message.
type CopyFail struct{ Reason string }

func (m CopyFail) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagCopyFail, func(w *Writer) {
		w.WriteCString(m.Reason)
	})
}

// Terminate closes the connection gracefully.
type Terminate struct{}

func (Terminate) Encode(dst []byte) []byte {
	return encodeTagged(dst, tagTerminate, func(*Writer) {})
}

// encodeTagged writes tag, reserves the length field, runs body to fill
// the payload, then backpatches the length — the pattern spec.md §4.2
// and §9 describe for every tagged frontend message.
func encodeTagged(dst []byte, tag byte, body func(w *Writer)) []byte {
	w := &Writer{buf: dst}
	_ = w.WriteByte(tag)
	lenOff := w.ReserveInt32()
	body(w)
	w.PatchInt32(lenOff, int32(w.Len()-lenOff))
	return w.buf
}
