package pgwire

import "testing"

func TestConnStartupTransitionsToAuthenticating(t *testing.T) {
	c := NewConn(ConnectionConfig{User: "alice", Database: "appdb"})
	if _, err := c.Startup(); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if c.CurrentState().Kind != StateAuthenticating {
		t.Errorf("state: got %v, want Authenticating", c.CurrentState())
	}
}

func TestConnStartupTwiceIsIllegal(t *testing.T) {
	c := NewConn(ConnectionConfig{User: "alice"})
	if _, err := c.Startup(); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if _, err := c.Startup(); err == nil {
		t.Errorf("second Startup: got nil error, want IllegalStateTransitionError")
	}
}

func TestConnFullHandshakeToReadyForQuery(t *testing.T) {
	c := NewConn(ConnectionConfig{User: "alice", Database: "appdb"})
	mustStartup(t, c)

	if err := c.Receive(AuthenticationOk{}); err != nil {
		t.Fatalf("Receive(AuthenticationOk): %v", err)
	}
	if err := c.Receive(ParameterStatus{Name: "server_version", Value: "16.2"}); err != nil {
		t.Fatalf("Receive(ParameterStatus): %v", err)
	}
	if err := c.Receive(BackendKeyData{ProcessID: 123, SecretKey: 456}); err != nil {
		t.Fatalf("Receive(BackendKeyData): %v", err)
	}
	if err := c.Receive(ReadyForQuery{Status: Idle}); err != nil {
		t.Fatalf("Receive(ReadyForQuery): %v", err)
	}

	if got := c.CurrentState(); got.Kind != StateReadyForQuery || got.TxStatus != Idle {
		t.Errorf("state: got %v, want ReadyForQuery(idle)", got)
	}

	v, ok := c.ServerParameter("server_version")
	if !ok || v != "16.2" {
		t.Errorf("ServerParameter: got (%q, %v), want (\"16.2\", true)", v, ok)
	}

	kd, ok := c.BackendKeyData()
	if !ok || kd.ProcessID != 123 || kd.SecretKey != 456 {
		t.Errorf("BackendKeyData: got (%+v, %v)", kd, ok)
	}
}

func TestConnSendQueryRequiresReadyForQuery(t *testing.T) {
	c := NewConn(ConnectionConfig{User: "alice"})
	mustStartup(t, c)

	if err := c.Send(Query{SQL: "SELECT 1"}); err == nil {
		t.Errorf("Send(Query) while Authenticating: got nil error, want IllegalStateTransitionError")
	}
}

func TestConnQueryCycleGoesBusyThenBackToReadyForQuery(t *testing.T) {
	c := readyConn(t)

	if err := c.Send(Query{SQL: "SELECT 1"}); err != nil {
		t.Fatalf("Send(Query): %v", err)
	}
	if c.CurrentState().Kind != StateBusy {
		t.Fatalf("state after send: got %v, want Busy", c.CurrentState())
	}

	if err := c.Receive(RowDescription{}); err != nil {
		t.Fatalf("Receive(RowDescription): %v", err)
	}
	if err := c.Receive(DataRow{Columns: [][]byte{[]byte("1")}}); err != nil {
		t.Fatalf("Receive(DataRow): %v", err)
	}
	if err := c.Receive(CommandComplete{Tag: "SELECT 1"}); err != nil {
		t.Fatalf("Receive(CommandComplete): %v", err)
	}
	if err := c.Receive(ReadyForQuery{Status: Idle}); err != nil {
		t.Fatalf("Receive(ReadyForQuery): %v", err)
	}
	if got := c.CurrentState(); got.Kind != StateReadyForQuery || got.TxStatus != Idle {
		t.Errorf("final state: got %v, want ReadyForQuery(idle)", got)
	}
}

func TestConnCopyInResponseTransitionsToCopyIn(t *testing.T) {
	c := readyConn(t)
	if err := c.Send(Query{SQL: "COPY t FROM STDIN"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := c.Receive(CopyInResponse{Format: FormatText}); err != nil {
		t.Fatalf("Receive(CopyInResponse): %v", err)
	}
	if c.CurrentState().Kind != StateCopyIn {
		t.Errorf("state: got %v, want CopyIn", c.CurrentState())
	}
}

func TestConnErrorDuringBusyRecordedThenReadyForQueryInFailedTransaction(t *testing.T) {
	c := readyConn(t)
	if err := c.Send(Query{SQL: "SELECT bogus"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	w := NewWriter(32)
	writeErrorFields(w, []ErrorField{
		{Type: FieldSeverity, Value: "ERROR"},
		{Type: FieldCode, Value: SQLStateUndefinedTable},
		{Type: FieldMessage, Value: "relation \"bogus\" does not exist"},
	})
	errMsg, err := ParseBackend('E', w.Bytes())
	if err != nil {
		t.Fatalf("ParseBackend: %v", err)
	}

	if err := c.Receive(errMsg); err != nil {
		t.Fatalf("Receive(ErrorResponse): %v", err)
	}
	if c.CurrentState().Kind != StateBusy {
		t.Errorf("state after error: got %v, want still Busy", c.CurrentState())
	}
	if c.LastError() == nil || c.LastError().Kind != SqlErrorUndefinedTable {
		t.Errorf("LastError: got %+v, want SqlErrorUndefinedTable", c.LastError())
	}

	if err := c.Receive(ReadyForQuery{Status: InFailedTransaction}); err != nil {
		t.Fatalf("Receive(ReadyForQuery): %v", err)
	}
	if got := c.CurrentState(); got.Kind != StateReadyForQuery || got.TxStatus != InFailedTransaction {
		t.Errorf("state: got %v, want ReadyForQuery(in-failed-transaction)", got)
	}
}

func TestConnIllegalMessageTransitionsToError(t *testing.T) {
	c := readyConn(t)
	// RowDescription with no query in flight is illegal in ReadyForQuery.
	if err := c.Receive(RowDescription{}); err == nil {
		t.Errorf("Receive(RowDescription) while ReadyForQuery: got nil error, want error")
	}
	if c.CurrentState().Kind != StateError {
		t.Errorf("state after illegal message: got %v, want Error", c.CurrentState())
	}
}

func TestConnSendTerminateAlwaysLegal(t *testing.T) {
	c := NewConn(ConnectionConfig{User: "alice"})
	if err := c.Send(Terminate{}); err != nil {
		t.Fatalf("Send(Terminate): %v", err)
	}
	if c.CurrentState().Kind != StateTerminated {
		t.Errorf("state: got %v, want Terminated", c.CurrentState())
	}
}

func TestConnReceiveAfterTerminatedIsIllegal(t *testing.T) {
	c := NewConn(ConnectionConfig{User: "alice"})
	_ = c.Send(Terminate{})
	if err := c.Receive(ReadyForQuery{Status: Idle}); err == nil {
		t.Errorf("Receive after Terminate: got nil error, want error")
	}
}

func TestConnSCRAMHandshake(t *testing.T) {
	c := NewConn(ConnectionConfig{User: "alice", Password: "pencil"})
	mustStartup(t, c)

	resp, err := c.BeginSASL("pencil")
	if err != nil {
		t.Fatalf("BeginSASL: %v", err)
	}
	if _, ok := resp.(SASLInitialResponse); !ok {
		t.Fatalf("BeginSASL: got %T, want SASLInitialResponse", resp)
	}
}

func mustStartup(t *testing.T, c *Conn) {
	t.Helper()
	if _, err := c.Startup(); err != nil {
		t.Fatalf("Startup: %v", err)
	}
}

func readyConn(t *testing.T) *Conn {
	t.Helper()
	c := NewConn(ConnectionConfig{User: "alice", Database: "appdb"})
	mustStartup(t, c)
	if err := c.Receive(AuthenticationOk{}); err != nil {
		t.Fatalf("Receive(AuthenticationOk): %v", err)
	}
	if err := c.Receive(ReadyForQuery{Status: Idle}); err != nil {
		t.Fatalf("Receive(ReadyForQuery): %v", err)
	}
	return c
}
