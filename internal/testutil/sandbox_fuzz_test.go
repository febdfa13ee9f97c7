package testutil

import "testing"

// FuzzSandboxConfigRoundTrip treats fuzzed bytes as the body of a
// config/default.yaml file (most inputs won't parse as YAML; WriteConfigFile
// doesn't care, only LoadConfig would) and checks the sandbox returns
// exactly what was written.
func FuzzSandboxConfigRoundTrip(f *testing.F) {
	f.Add([]byte("server:\n  listen_addr: \"0.0.0.0:1\"\n"))
	f.Add([]byte(""))
	f.Fuzz(func(t *testing.T, body []byte) {
		sb, err := NewSandbox("fuzz")
		if err != nil {
			t.Fatalf("NewSandbox failed: %v", err)
		}
		defer sb.Cleanup()
		if err := sb.WriteConfigFile("", string(body)); err != nil {
			t.Fatalf("WriteConfigFile failed: %v", err)
		}
		out, err := sb.ReadFile("config/default.yaml")
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if string(out) != string(body) {
			t.Fatalf("mismatch: got %q want %q", out, body)
		}
	})
}
