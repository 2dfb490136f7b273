package pgwire

import "fmt"

// ConnectionConfig holds everything needed to start a connection. It is
// created by the caller and immutable for the lifetime of a Conn.
type ConnectionConfig struct {
	Host            string
	Port            uint16
	Database        string
	User            string
	Password        string // optional; empty means "none supplied yet"
	SSLMode         SSLMode
	ApplicationName string
	Options         map[string]string
}

// DefaultConnectionConfig returns a ConnectionConfig with the protocol's
// conservative defaults: SSL preferred, no extra options.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		Port:    5432,
		SSLMode: SSLPrefer,
	}
}

// options returns the startup parameter map this config contributes
// beyond user/database: application_name plus any caller-supplied
// Options, verbatim.
func (c ConnectionConfig) options() map[string]string {
	opts := make(map[string]string, len(c.Options)+1)
	for k, v := range c.Options {
		opts[k] = v
	}
	if c.ApplicationName != "" {
		opts["application_name"] = c.ApplicationName
	}
	return opts
}

// StateKind enumerates the ConnectionState variants of spec.md §3.
type StateKind int

const (
	StateConnecting StateKind = iota
	StateAuthenticating
	StateReadyForQuery
	StateBusy
	StateCopyIn
	StateCopyOut
	StateError
	StateTerminated
)

func (k StateKind) String() string {
	switch k {
	case StateConnecting:
		return "Connecting"
	case StateAuthenticating:
		return "Authenticating"
	case StateReadyForQuery:
		return "ReadyForQuery"
	case StateBusy:
		return "Busy"
	case StateCopyIn:
		return "CopyIn"
	case StateCopyOut:
		return "CopyOut"
	case StateError:
		return "Error"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// ConnectionState is the observable state of a Conn. TxStatus is only
// meaningful when Kind == StateReadyForQuery; Detail is only meaningful
// when Kind == StateError.
type ConnectionState struct {
	Kind     StateKind
	TxStatus TransactionStatus
	Detail   string
}

func (s ConnectionState) String() string {
	switch s.Kind {
	case StateReadyForQuery:
		return fmt.Sprintf("ReadyForQuery(%s)", s.TxStatus)
	case StateError:
		return fmt.Sprintf("Error(%s)", s.Detail)
	default:
		return s.Kind.String()
	}
}

// ServerParameters is the accumulated set of ParameterStatus values, one
// entry per unique parameter name. Entries are only ever added or
// overwritten, never removed.
type ServerParameters map[string]string

// Get returns the current value of a server parameter, if known.
func (p ServerParameters) Get(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

// Conn is the pure connection state machine of spec.md §4.6: a function
// of (state, event) with no I/O of its own. The embedder owns the
// transport, pumping encoded bytes out and decoded messages in.
type Conn struct {
	config    ConnectionConfig
	state     ConnectionState
	params    ServerParameters
	keyData   BackendKeyData
	haveKey   bool
	scram     *SCRAMClient
	lastError *SqlError
}

// NewConn creates a Conn in the initial Connecting state.
func NewConn(config ConnectionConfig) *Conn {
	return &Conn{
		config: config,
		state:  ConnectionState{Kind: StateConnecting},
		params: ServerParameters{},
	}
}

// CurrentState returns the connection's current observable state.
func (c *Conn) CurrentState() ConnectionState { return c.state }

// ServerParameter returns the current value of a server parameter.
func (c *Conn) ServerParameter(name string) (string, bool) { return c.params.Get(name) }

// BackendKeyData returns the cancellation key pair, once it has arrived.
func (c *Conn) BackendKeyData() (BackendKeyData, bool) { return c.keyData, c.haveKey }

// LastError returns the most recently recorded SqlError, if any.
func (c *Conn) LastError() *SqlError { return c.lastError }

// Startup builds this connection's StartupMessage and transitions
// Connecting -> Authenticating.
func (c *Conn) Startup() (FrontendMessage, error) {
	msg := NewStartupMessage(c.config.User, c.config.Database, c.config.options())
	if err := c.Send(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Send validates that msg is legal to send in the current state and
// applies the resulting transition. It performs no I/O: encoding and
// writing msg to the transport is the caller's job.
func (c *Conn) Send(msg FrontendMessage) error {
	switch msg.(type) {
	case StartupMessage:
		if c.state.Kind != StateConnecting {
			return IllegalStateTransitionError(c.state, "send:StartupMessage")
		}
		c.state = ConnectionState{Kind: StateAuthenticating}

	case Query, Parse, Bind, Execute:
		if c.state.Kind != StateReadyForQuery {
			return IllegalStateTransitionError(c.state, "send:"+frontendMessageName(msg))
		}
		c.state = ConnectionState{Kind: StateBusy}

	case Terminate:
		c.state = ConnectionState{Kind: StateTerminated}

	default:
		// SSLRequest, CancelRequest, PasswordMessage, SASLInitialResponse,
		// SASLResponse, Describe, Close, Sync, Flush, CopyData*, CopyDone*,
		// CopyFail: spec.md names no additional state precondition for
		// these, so they pass through without a transition. Ordering
		// within an extended-query cycle (bounded by Sync) is the
		// embedder's responsibility, per spec.md §5.
	}
	return nil
}

// Receive advances the state machine in response to a decoded backend
// message. It is total over (state, message tag): every pair yields
// either a transition or an IllegalStateTransitionError. A message that
// is illegal in the current state also moves the connection to Error,
// unless it is already Terminated, where it stays.
func (c *Conn) Receive(msg BackendMessage) error {
	err := c.receive(msg)
	if err != nil && c.state.Kind != StateTerminated {
		c.state = ConnectionState{Kind: StateError, Detail: err.Error()}
	}
	return err
}

func (c *Conn) receive(msg BackendMessage) error {
	if c.state.Kind == StateTerminated {
		return IllegalStateTransitionError(c.state, "receive:"+backendMessageName(msg))
	}

	// ParameterStatus, NoticeResponse and NotificationResponse are legal
	// in any state but Connecting/Terminated: the server may report a SET
	// or raise a notice or async event at any point after startup begins,
	// as spec.md §9's open question on NotificationResponse places it.
	switch m := msg.(type) {
	case ParameterStatus:
		if c.state.Kind == StateConnecting {
			return IllegalStateTransitionError(c.state, "receive:ParameterStatus")
		}
		c.params[m.Name] = m.Value
		return nil
	case NoticeResponse, NotificationResponse:
		if c.state.Kind == StateConnecting {
			return IllegalStateTransitionError(c.state, "receive:"+backendMessageName(msg))
		}
		return nil
	case ReadyForQuery:
		switch c.state.Kind {
		case StateAuthenticating, StateReadyForQuery, StateBusy, StateCopyIn, StateCopyOut, StateError:
			c.state = ConnectionState{Kind: StateReadyForQuery, TxStatus: m.Status}
			return nil
		default:
			return IllegalStateTransitionError(c.state, "receive:ReadyForQuery")
		}
	}

	switch c.state.Kind {
	case StateConnecting:
		return IllegalStateTransitionError(c.state, "receive:"+backendMessageName(msg))

	case StateAuthenticating:
		return c.receiveAuthenticating(msg)

	case StateReadyForQuery:
		return IllegalStateTransitionError(c.state, "receive:"+backendMessageName(msg))

	case StateBusy, StateCopyIn, StateCopyOut:
		return c.receiveBusy(msg)

	case StateError:
		// Only ReadyForQuery (handled above) recovers from Error; any
		// other incoming message while Error is outstanding is recorded
		// as a no-op rather than re-raised, since the caller has already
		// been told the connection needs attention.
		return nil

	default:
		return IllegalStateTransitionError(c.state, "receive:"+backendMessageName(msg))
	}
}

func (c *Conn) receiveAuthenticating(msg BackendMessage) error {
	switch m := msg.(type) {
	case AuthenticationOk:
		return nil
	case AuthenticationMD5Password, AuthenticationCleartextPassword,
		AuthenticationSASL, AuthenticationSASLContinue, AuthenticationSASLFinal,
		AuthenticationKerberosV5, AuthenticationGSS, AuthenticationSSPI:
		return nil
	case BackendKeyData:
		c.keyData = m
		c.haveKey = true
		return nil
	case ErrorResponse:
		c.lastError = NewSqlError(m.Fields)
		c.state = ConnectionState{Kind: StateError, Detail: c.lastError.Message}
		return nil
	default:
		return IllegalStateTransitionError(c.state, "receive:"+backendMessageName(msg))
	}
}

func (c *Conn) receiveBusy(msg BackendMessage) error {
	switch m := msg.(type) {
	case CopyInResponse:
		if c.state.Kind != StateBusy {
			return IllegalStateTransitionError(c.state, "receive:CopyInResponse")
		}
		c.state = ConnectionState{Kind: StateCopyIn}
		return nil
	case CopyOutResponse:
		if c.state.Kind != StateBusy {
			return IllegalStateTransitionError(c.state, "receive:CopyOutResponse")
		}
		c.state = ConnectionState{Kind: StateCopyOut}
		return nil
	case CopyBothResponse:
		if c.state.Kind != StateBusy {
			return IllegalStateTransitionError(c.state, "receive:CopyBothResponse")
		}
		c.state = ConnectionState{Kind: StateCopyIn}
		return nil
	case ErrorResponse:
		c.lastError = NewSqlError(m.Fields)
		return nil
	case RowDescription, DataRow, CommandComplete, EmptyQueryResponse, NoData,
		PortalSuspended, ParseComplete, BindComplete, CloseComplete,
		ParameterDescription, FunctionCallResponse, CopyData, CopyDone:
		return nil
	default:
		return IllegalStateTransitionError(c.state, "receive:"+backendMessageName(msg))
	}
}

// --- Authentication engine delegation ---

// BeginSASL starts a SCRAM-SHA-256 exchange and returns the
// SASLInitialResponse to send.
func (c *Conn) BeginSASL(password string) (FrontendMessage, error) {
	client, err := NewSCRAMClient(password)
	if err != nil {
		return nil, err
	}
	c.scram = client
	return SASLInitialResponse{
		Mechanism:       "SCRAM-SHA-256",
		InitialResponse: client.InitialResponse(),
	}, nil
}

// ContinueSASL advances the exchange on AuthenticationSASLContinue,
// returning the SASLResponse to send.
func (c *Conn) ContinueSASL(msg AuthenticationSASLContinue) (FrontendMessage, error) {
	if c.scram == nil {
		return nil, &AuthError{Reason: "SASL exchange not started"}
	}
	data, err := c.scram.ProcessServerFirst(msg.Data)
	if err != nil {
		return nil, err
	}
	return SASLResponse{Data: data}, nil
}

// FinishSASL verifies AuthenticationSASLFinal's server signature.
func (c *Conn) FinishSASL(msg AuthenticationSASLFinal) error {
	if c.scram == nil {
		return &AuthError{Reason: "SASL exchange not started"}
	}
	return c.scram.ProcessServerFinal(msg.Data)
}

// RespondToPasswordAuth builds the PasswordMessage for a cleartext or
// MD5 AuthenticationRequest. salt is ignored for AuthCleartextPassword.
func (c *Conn) RespondToPasswordAuth(kind AuthKind, salt [4]byte) (FrontendMessage, error) {
	switch kind {
	case AuthCleartextPassword:
		return PasswordMessage{Password: c.config.Password}, nil
	case AuthMD5Password:
		return PasswordMessage{Password: HashMD5Password(c.config.User, c.config.Password, salt)}, nil
	default:
		return nil, UnsupportedAuthError(kind)
	}
}

func frontendMessageName(msg FrontendMessage) string {
	switch msg.(type) {
	case StartupMessage:
		return "StartupMessage"
	case Query:
		return "Query"
	case Parse:
		return "Parse"
	case Bind:
		return "Bind"
	case Execute:
		return "Execute"
	case Terminate:
		return "Terminate"
	default:
		return fmt.Sprintf("%T", msg)
	}
}

func backendMessageName(msg BackendMessage) string {
	return fmt.Sprintf("%T", msg)
}
