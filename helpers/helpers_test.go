package helpers

import (
	"strings"
	"testing"
)

func TestShortenAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", "0xd8dA…6045"},
		{"0x1234", "0x1234"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ShortenAddr(tt.in); got != tt.want {
			t.Errorf("ShortenAddr(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsValidEthAddress(t *testing.T) {
	if !IsValidEthAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045") {
		t.Error("expected checksummed address to be valid")
	}
	for _, bad := range []string{"", "0x123", "d8dA6BF26964aF9D7eEd9e03E53415D37aA96045", "0xZZdA6BF26964aF9D7eEd9e03E53415D37aA96045"} {
		if IsValidEthAddress(bad) {
			t.Errorf("%q should be invalid", bad)
		}
	}
}

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0000000000"},
		{1.5, "1.5000000000"},
		{0.0000000001, "0.0000000001"},
	}
	for _, tt := range tests {
		if got := FormatBalance(tt.in); got != tt.want {
			t.Errorf("FormatBalance(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExplorerTxURL(t *testing.T) {
	tests := []struct {
		name     string
		explorer string
		want     string
	}{
		{"default", "", "https://snowtrace.io/tx/0xabc"},
		{"trailing slash", "https://testnet.snowtrace.io/", "https://testnet.snowtrace.io/tx/0xabc"},
		{"no slash", "https://explorer.example", "https://explorer.example/tx/0xabc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExplorerTxURL(tt.explorer, "0xabc"); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQRCode(t *testing.T) {
	qr := QRCode("https://snowtrace.io/tx/0xabc")
	if lines := strings.Count(qr, "\n"); lines < 10 {
		t.Errorf("QR code looks too small: %d lines", lines)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 3); got != 2 {
		t.Errorf("Clamp(5, 3) = %d", got)
	}
	if got := Clamp(-1, 3); got != 0 {
		t.Errorf("Clamp(-1, 3) = %d", got)
	}
	if got := Clamp(1, 0); got != 0 {
		t.Errorf("Clamp(1, 0) = %d", got)
	}
}
