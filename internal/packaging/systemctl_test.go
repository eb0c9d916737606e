package packaging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeSystemctl writes a shell script standing in for systemctl. Every
// invocation is appended to the returned log file. "show" prints state and
// "enable" fails with a masked-unit message.
func fakeSystemctl(t *testing.T, state string) (*Systemctl, string) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	dir := t.TempDir()
	log := filepath.Join(dir, "calls.log")
	script := "#!/bin/sh\n" +
		"echo \"$*\" >> " + log + "\n" +
		"case \"$1\" in\n" +
		"show) echo " + state + " ;;\n" +
		"enable) echo \"Unit $2 is masked.\" >&2; exit 1 ;;\n" +
		"esac\n"
	path := filepath.Join(dir, "systemctl")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return &Systemctl{Path: path}, log
}

func readCalls(t *testing.T, log string) []string {
	t.Helper()
	data, err := os.ReadFile(log)
	if err != nil {
		t.Fatalf("ReadFile(%q) = %v", log, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestSystemctl_Available(t *testing.T) {
	s, _ := fakeSystemctl(t, LoadStateLoaded)
	if !s.Available() {
		t.Error("Available() = false for an executable script")
	}

	missing := &Systemctl{Path: filepath.Join(t.TempDir(), "systemctl")}
	if missing.Available() {
		t.Error("Available() = true for a missing binary")
	}
}

func TestSystemctl_Commands(t *testing.T) {
	s, log := fakeSystemctl(t, LoadStateLoaded)

	if err := s.Reload(); err != nil {
		t.Fatalf("Reload() = %v", err)
	}
	if err := s.TryRestart("tetherd"); err != nil {
		t.Fatalf("TryRestart() = %v", err)
	}
	if err := s.Stop("tetherd"); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if err := s.Disable("tetherd"); err != nil {
		t.Fatalf("Disable() = %v", err)
	}

	want := []string{"daemon-reload", "try-restart tetherd", "stop tetherd", "disable tetherd"}
	got := readCalls(t, log)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestSystemctl_LoadState(t *testing.T) {
	s, log := fakeSystemctl(t, LoadStateNotFound)

	state, err := s.LoadState("wpa_supplicant.service")
	if err != nil {
		t.Fatalf("LoadState() = %v", err)
	}
	if state != LoadStateNotFound {
		t.Errorf("LoadState() = %q, want %q", state, LoadStateNotFound)
	}
	if got := readCalls(t, log); got[0] != "show --property=LoadState --value wpa_supplicant.service" {
		t.Errorf("call = %q", got[0])
	}
}

func TestSystemctl_ErrorCarriesStderr(t *testing.T) {
	s, _ := fakeSystemctl(t, LoadStateLoaded)

	err := s.Enable("tetherd")
	if err == nil {
		t.Fatal("Enable() = nil, want error")
	}
	for _, want := range []string{"systemctl enable", "Unit tetherd is masked."} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Enable() error = %q, want it to contain %q", err, want)
		}
	}
}
