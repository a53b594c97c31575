package wire

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeAddressRoundTripIPv4(t *testing.T) {
	encoded := EncodeAddress("93.184.216.34", 80)
	atyp := encoded[0]
	addr, err := DecodeAddress(bytes.NewReader(encoded[1:]), atyp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Host != "93.184.216.34" || addr.Port != 80 {
		t.Fatalf("round trip mismatch: %+v", addr)
	}
}

func TestEncodeDecodeAddressRoundTripDomain(t *testing.T) {
	encoded := EncodeAddress("example.com", 443)
	atyp := encoded[0]
	addr, err := DecodeAddress(bytes.NewReader(encoded[1:]), atyp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Host != "example.com" || addr.Port != 443 {
		t.Fatalf("round trip mismatch: %+v", addr)
	}
}

func TestEncodeDecodeAddressRoundTripIPv6(t *testing.T) {
	encoded := EncodeAddress("::1", 22)
	atyp := encoded[0]
	addr, err := DecodeAddress(bytes.NewReader(encoded[1:]), atyp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Host != "::1" || addr.Port != 22 {
		t.Fatalf("round trip mismatch: %+v", addr)
	}
}

func TestReplyBytesShape(t *testing.T) {
	reply := ReplyBytes(RepSucceeded, "10.0.0.5", 80)
	want := []byte{0x05, 0x00, 0x00, 0x01, 10, 0, 0, 5, 0, 80}
	if !bytes.Equal(reply, want) {
		t.Fatalf("got % x, want % x", reply, want)
	}
}

func TestDecodeAddressRejectsZeroLengthDomain(t *testing.T) {
	_, err := DecodeAddress(bytes.NewReader([]byte{0x00}), ATYPDomain)
	if err == nil {
		t.Fatalf("expected error for zero-length domain")
	}
}
