package pgwire

import "testing"

func TestHashMD5Password(t *testing.T) {
	result := HashMD5Password("postgres", "secret", [4]byte{0x01, 0x02, 0x03, 0x04})
	if len(result) != 35 {
		t.Fatalf("HashMD5Password length: got %d, want 35", len(result))
	}
	if result[:3] != "md5" {
		t.Errorf("HashMD5Password prefix: got %q, want 'md5...'", result[:3])
	}
}

func TestHashMD5PasswordDeterministic(t *testing.T) {
	salt := [4]byte{9, 8, 7, 6}
	a := HashMD5Password("alice", "hunter2", salt)
	b := HashMD5Password("alice", "hunter2", salt)
	if a != b {
		t.Errorf("HashMD5Password not deterministic: %q != %q", a, b)
	}
}

func TestHashMD5PasswordVariesWithUser(t *testing.T) {
	salt := [4]byte{1, 1, 1, 1}
	a := HashMD5Password("alice", "hunter2", salt)
	b := HashMD5Password("bob", "hunter2", salt)
	if a == b {
		t.Errorf("HashMD5Password should differ by user, both gave %q", a)
	}
}

// TestSCRAMClientFullExchange drives the fixed-nonce authenticator
// against the worked example in RFC 5802 §5, with the salt/iteration
// count/server nonce PostgreSQL's own test suite uses for SCRAM-SHA-256.
func TestSCRAMClientFullExchange(t *testing.T) {
	client := newSCRAMClientWithNonce("pencil", "rOprNGfwEbeRWgbNEkqO")

	initial := client.InitialResponse()
	wantInitial := "n,,n=,r=rOprNGfwEbeRWgbNEkqO"
	if string(initial) != wantInitial {
		t.Fatalf("InitialResponse: got %q, want %q", initial, wantInitial)
	}

	serverFirst := "r=rOprNGfwEbeRWgbNEkqO%hvYDpWUa2RaTCAfuxFIlj)hNlF$k0,s=W22ZaJ0SNY7soEsUEjb6gQ==,i=4096"
	clientFinal, err := client.ProcessServerFirst([]byte(serverFirst))
	if err != nil {
		t.Fatalf("ProcessServerFirst: %v", err)
	}

	wantProof := "p=dHzbZapWIk4jUhN+Ute9ytag9zjfMHgsqmmiz7AndVQ="
	got := string(clientFinal)
	if len(got) < len(wantProof) || got[len(got)-len(wantProof):] != wantProof {
		t.Errorf("client-final proof: got %q, want suffix %q", got, wantProof)
	}

	if client.Done() {
		t.Errorf("Done() before server-final: got true, want false")
	}
}

func TestSCRAMClientRejectsNonceMismatch(t *testing.T) {
	client := newSCRAMClientWithNonce("pencil", "rOprNGfwEbeRWgbNEkqO")
	client.InitialResponse()

	// Server nonce does not carry the client nonce as a prefix.
	badServerFirst := "r=totallyDifferentNonce,s=W22ZaJ0SNY7soEsUEjb6gQ==,i=4096"
	if _, err := client.ProcessServerFirst([]byte(badServerFirst)); err == nil {
		t.Errorf("ProcessServerFirst with mismatched nonce: got nil error, want error")
	}
}

func TestSCRAMClientOutOfOrderServerFinal(t *testing.T) {
	client := newSCRAMClientWithNonce("pencil", "rOprNGfwEbeRWgbNEkqO")
	client.InitialResponse()

	if err := client.ProcessServerFinal([]byte("v=whatever")); err == nil {
		t.Errorf("ProcessServerFinal before server-first: got nil error, want error")
	}
}

func TestSCRAMClientRejectsBadServerSignature(t *testing.T) {
	client := newSCRAMClientWithNonce("pencil", "rOprNGfwEbeRWgbNEkqO")
	client.InitialResponse()

	serverFirst := "r=rOprNGfwEbeRWgbNEkqO%hvYDpWUa2RaTCAfuxFIlj)hNlF$k0,s=W22ZaJ0SNY7soEsUEjb6gQ==,i=4096"
	if _, err := client.ProcessServerFirst([]byte(serverFirst)); err != nil {
		t.Fatalf("ProcessServerFirst: %v", err)
	}

	if err := client.ProcessServerFinal([]byte("v=AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")); err == nil {
		t.Errorf("ProcessServerFinal with wrong signature: got nil error, want error")
	}
	if client.Done() {
		t.Errorf("Done() after rejected server signature: got true, want false")
	}
}

func TestSCRAMClientAcceptsValidServerSignature(t *testing.T) {
	client := newSCRAMClientWithNonce("pencil", "rOprNGfwEbeRWgbNEkqO")
	client.InitialResponse()

	serverFirst := "r=rOprNGfwEbeRWgbNEkqO%hvYDpWUa2RaTCAfuxFIlj)hNlF$k0,s=W22ZaJ0SNY7soEsUEjb6gQ==,i=4096"
	if _, err := client.ProcessServerFirst([]byte(serverFirst)); err != nil {
		t.Fatalf("ProcessServerFirst: %v", err)
	}

	sig := "v=6rriTRBi23WpRR/wtup+mMhUZUn/dB5nLTJRsjl95G4="
	if err := client.ProcessServerFinal([]byte(sig)); err != nil {
		t.Fatalf("ProcessServerFinal: %v", err)
	}
	if !client.Done() {
		t.Errorf("Done(): got false, want true")
	}
}
