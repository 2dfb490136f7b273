package pgwire

import (
	"strconv"
	"strings"
)

// BackendMessage is implemented by every server-originated message
// variant. It is a closed, sum-type-like interface: its unexported marker
// method keeps other packages from adding variants, and ParseBackend
// builds these values from wire bytes.
type BackendMessage interface {
	isBackendMessage()
}

// --- Authentication sub-messages (tag 'R') ---

type AuthenticationOk struct{}
type AuthenticationKerberosV5 struct{}
type AuthenticationCleartextPassword struct{}
type AuthenticationMD5Password struct{ Salt [4]byte }
type AuthenticationGSS struct{}
type AuthenticationSSPI struct{}
type AuthenticationSASL struct{ Mechanisms []string }
type AuthenticationSASLContinue struct{ Data []byte }
type AuthenticationSASLFinal struct{ Data []byte }

func (AuthenticationOk) isBackendMessage()                      {}
func (AuthenticationKerberosV5) isBackendMessage()               {}
func (AuthenticationCleartextPassword) isBackendMessage()        {}
func (AuthenticationMD5Password) isBackendMessage()              {}
func (AuthenticationGSS) isBackendMessage()                      {}
func (AuthenticationSSPI) isBackendMessage()                     {}
func (AuthenticationSASL) isBackendMessage()                     {}
func (AuthenticationSASLContinue) isBackendMessage()             {}
func (AuthenticationSASLFinal) isBackendMessage()                {}

// --- Remaining backend messages ---

type ParameterStatus struct{ Name, Value string }
type BackendKeyData struct{ ProcessID, SecretKey int32 }
type ReadyForQuery struct{ Status TransactionStatus }

type FieldDescription struct {
	Name         string
	TableOID     uint32
	ColumnAttr   int16
	TypeOID      uint32
	TypeSize     int16
	TypeModifier int32
	Format       FormatCode
}

type RowDescription struct{ Fields []FieldDescription }

// DataRow carries one row's columns as raw bytes; a nil entry means SQL
// NULL. Column values may alias the input payload.
type DataRow struct{ Columns [][]byte }

type CommandComplete struct{ Tag string }

// Verb returns the command tag's leading word, e.g. "INSERT", "UPDATE",
// "SELECT", "BEGIN".
func (c CommandComplete) Verb() string {
	if i := strings.IndexByte(c.Tag, ' '); i >= 0 {
		return c.Tag[:i]
	}
	return c.Tag
}

// RowsAffected parses the row count out of a command tag, e.g. "5" out
// of "UPDATE 5" or "INSERT 0 5". ok is false for tags that carry no
// count, such as "BEGIN" or "SET".
func (c CommandComplete) RowsAffected() (count int64, ok bool) {
	fields := strings.Fields(c.Tag)
	if len(fields) < 2 {
		return 0, false
	}
	n, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
type EmptyQueryResponse struct{}
type ErrorResponse struct{ Fields []ErrorField }
type NoticeResponse struct{ Fields []ErrorField }
type NotificationResponse struct {
	PID     int32
	Channel string
	Payload string
}
type NoData struct{}
type PortalSuspended struct{}
type ParseComplete struct{}
type BindComplete struct{}
type CloseComplete struct{}

type CopyInResponse struct {
	Format        FormatCode
	ColumnFormats []FormatCode
}
type CopyOutResponse struct {
	Format        FormatCode
	ColumnFormats []FormatCode
}
type CopyBothResponse struct {
	Format        FormatCode
	ColumnFormats []FormatCode
}
type CopyData struct{ Data []byte }
type CopyDone struct{}
type ParameterDescription struct{ OIDs []uint32 }
type FunctionCallResponse struct{ Result []byte }

func (ParameterStatus) isBackendMessage()         {}
func (BackendKeyData) isBackendMessage()          {}
func (ReadyForQuery) isBackendMessage()            {}
func (RowDescription) isBackendMessage()           {}
func (DataRow) isBackendMessage()                  {}
func (CommandComplete) isBackendMessage()          {}
func (EmptyQueryResponse) isBackendMessage()       {}
func (ErrorResponse) isBackendMessage()            {}
func (NoticeResponse) isBackendMessage()           {}
func (NotificationResponse) isBackendMessage()     {}
func (NoData) isBackendMessage()                   {}
func (PortalSuspended) isBackendMessage()          {}
func (ParseComplete) isBackendMessage()            {}
func (BindComplete) isBackendMessage()             {}
func (CloseComplete) isBackendMessage()            {}
func (CopyInResponse) isBackendMessage()           {}
func (CopyOutResponse) isBackendMessage()          {}
func (CopyBothResponse) isBackendMessage()         {}
func (CopyData) isBackendMessage()                 {}
func (CopyDone) isBackendMessage()                 {}
func (ParameterDescription) isBackendMessage()     {}
func (FunctionCallResponse) isBackendMessage()     {}

// ParseBackend decodes one backend message already delimited by the
// transport (tag + payload, length field already stripped). It never
// reassembles frames; callers pair it with ReadFrame.
func ParseBackend(tag byte, payload []byte) (BackendMessage, error) {
	r := NewReader(payload)

	switch tag {
	case tagAuthentication:
		return parseAuthentication(r)
	case tagParameterStatus:
		name, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		value, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("ParameterStatus: %d residual bytes", r.Remaining())
		}
		return ParameterStatus{Name: name, Value: value}, nil

	case tagBackendKeyData:
		pid, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		secret, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("BackendKeyData: %d residual bytes", r.Remaining())
		}
		return BackendKeyData{ProcessID: pid, SecretKey: secret}, nil

	case tagReadyForQuery:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		status := TransactionStatus(b)
		switch status {
		case Idle, InTransaction, InFailedTransaction:
		default:
			return nil, InvalidMessageError("ReadyForQuery: unknown status %q", b)
		}
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("ReadyForQuery: %d residual bytes", r.Remaining())
		}
		return ReadyForQuery{Status: status}, nil

	case tagRowDescription:
		return parseRowDescription(r)

	case tagDataRow:
		return parseDataRow(r)

	case tagCommandComplete:
		tagStr, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("CommandComplete: %d residual bytes", r.Remaining())
		}
		return CommandComplete{Tag: tagStr}, nil

	case tagEmptyQueryResponse:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("EmptyQueryResponse: %d residual bytes", r.Remaining())
		}
		return EmptyQueryResponse{}, nil

	case tagErrorResponse:
		fields, err := parseErrorFields(r)
		if err != nil {
			return nil, err
		}
		return ErrorResponse{Fields: fields}, nil

	case tagNoticeResponse:
		fields, err := parseErrorFields(r)
		if err != nil {
			return nil, err
		}
		return NoticeResponse{Fields: fields}, nil

	case tagNotificationResponse:
		pid, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		channel, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		payload2, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("NotificationResponse: %d residual bytes", r.Remaining())
		}
		return NotificationResponse{PID: pid, Channel: channel, Payload: payload2}, nil

	case tagNoData:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("NoData: %d residual bytes", r.Remaining())
		}
		return NoData{}, nil

	case tagPortalSuspended:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("PortalSuspended: %d residual bytes", r.Remaining())
		}
		return PortalSuspended{}, nil

	case tagParseComplete:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("ParseComplete: %d residual bytes", r.Remaining())
		}
		return ParseComplete{}, nil

	case tagBindComplete:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("BindComplete: %d residual bytes", r.Remaining())
		}
		return BindComplete{}, nil

	case tagCloseComplete:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("CloseComplete: %d residual bytes", r.Remaining())
		}
		return CloseComplete{}, nil

	case tagCopyInResponse:
		format, formats, err := parseCopyFormats(r)
		if err != nil {
			return nil, err
		}
		return CopyInResponse{Format: format, ColumnFormats: formats}, nil

	case tagCopyOutResponse:
		format, formats, err := parseCopyFormats(r)
		if err != nil {
			return nil, err
		}
		return CopyOutResponse{Format: format, ColumnFormats: formats}, nil

	case tagCopyBothResponse:
		format, formats, err := parseCopyFormats(r)
		if err != nil {
			return nil, err
		}
		return CopyBothResponse{Format: format, ColumnFormats: formats}, nil

	case tagCopyData:
		return CopyData{Data: r.ReadRemainder()}, nil

	case tagCopyDone:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("CopyDone: %d residual bytes", r.Remaining())
		}
		return CopyDone{}, nil

	case tagParameterDescription:
		count, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		oids := make([]uint32, count)
		for i := range oids {
			v, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			oids[i] = v
		}
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("ParameterDescription: %d residual bytes", r.Remaining())
		}
		return ParameterDescription{OIDs: oids}, nil

	case tagFunctionCallResponse:
		length, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		if length < 0 {
			return FunctionCallResponse{Result: nil}, nil
		}
		result, err := r.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		return FunctionCallResponse{Result: result}, nil

	default:
		return nil, InvalidMessageError("unknown backend tag %q", tag)
	}
}

func parseAuthentication(r *Reader) (BackendMessage, error) {
	kindVal, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	kind := AuthKind(kindVal)

	switch kind {
	case AuthOK:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("AuthenticationOk: %d residual bytes", r.Remaining())
		}
		return AuthenticationOk{}, nil
	case AuthKerberosV5:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("AuthenticationKerberosV5: %d residual bytes", r.Remaining())
		}
		return AuthenticationKerberosV5{}, nil
	case AuthCleartextPassword:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("AuthenticationCleartextPassword: %d residual bytes", r.Remaining())
		}
		return AuthenticationCleartextPassword{}, nil
	case AuthMD5Password:
		salt, err := r.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("AuthenticationMD5Password: %d residual bytes", r.Remaining())
		}
		var s [4]byte
		copy(s[:], salt)
		return AuthenticationMD5Password{Salt: s}, nil
	case AuthGSS:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("AuthenticationGSS: %d residual bytes", r.Remaining())
		}
		return AuthenticationGSS{}, nil
	case AuthSSPI:
		if r.Remaining() != 0 {
			return nil, InvalidMessageError("AuthenticationSSPI: %d residual bytes", r.Remaining())
		}
		return AuthenticationSSPI{}, nil
	case AuthSASL:
		var mechanisms []string
		for {
			m, err := r.ReadCString()
			if err != nil {
				return nil, err
			}
			if m == "" {
				break
			}
			mechanisms = append(mechanisms, m)
		}
		return AuthenticationSASL{Mechanisms: mechanisms}, nil
	case AuthSASLContinue:
		return AuthenticationSASLContinue{Data: r.ReadRemainder()}, nil
	case AuthSASLFinal:
		return AuthenticationSASLFinal{Data: r.ReadRemainder()}, nil
	default:
		return nil, UnsupportedAuthError(kind)
	}
}

func parseRowDescription(r *Reader) (BackendMessage, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	fields := make([]FieldDescription, count)
	for i := range fields {
		name, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		tableOID, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		colAttr, err := r.ReadInt16()
		if err != nil {
			return nil, err
		}
		typeOID, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		typeSize, err := r.ReadInt16()
		if err != nil {
			return nil, err
		}
		typeMod, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		formatInt, err := r.ReadInt16()
		if err != nil {
			return nil, err
		}
		format, err := FormatCodeFromInt(formatInt)
		if err != nil {
			return nil, err
		}
		fields[i] = FieldDescription{
			Name: name, TableOID: tableOID, ColumnAttr: colAttr,
			TypeOID: typeOID, TypeSize: typeSize, TypeModifier: typeMod,
			Format: format,
		}
	}
	if r.Remaining() != 0 {
		return nil, InvalidMessageError("RowDescription: %d residual bytes", r.Remaining())
	}
	return RowDescription{Fields: fields}, nil
}

func parseDataRow(r *Reader) (BackendMessage, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	cols := make([][]byte, count)
	for i := range cols {
		length, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		if length == -1 {
			cols[i] = nil
			continue
		}
		if length < 0 {
			return nil, InvalidMessageError("DataRow: invalid column length %d", length)
		}
		b, err := r.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		cols[i] = b
	}
	if r.Remaining() != 0 {
		return nil, InvalidMessageError("DataRow: %d residual bytes", r.Remaining())
	}
	return DataRow{Columns: cols}, nil
}

func parseCopyFormats(r *Reader) (FormatCode, []FormatCode, error) {
	formatByte, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	format, err := FormatCodeFromInt(int16(formatByte))
	if err != nil {
		return 0, nil, err
	}
	count, err := r.ReadUint16()
	if err != nil {
		return 0, nil, err
	}
	formats := make([]FormatCode, count)
	for i := range formats {
		v, err := r.ReadInt16()
		if err != nil {
			return 0, nil, err
		}
		fc, err := FormatCodeFromInt(v)
		if err != nil {
			return 0, nil, err
		}
		formats[i] = fc
	}
	if r.Remaining() != 0 {
		return 0, nil, InvalidMessageError("copy response: %d residual bytes", r.Remaining())
	}
	return format, formats, nil
}
