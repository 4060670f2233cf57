package mgmt

import "testing"

func TestEncodeHeaderLayout(t *testing.T) {
	h := encodeHeader(OpWrite, 0, 0, 5, 10)

	// op=2, version=1: (1<<3)|2 = 10
	if h[0] != 10 {
		t.Errorf("byte0 = %d, want 10", h[0])
	}

	if h[1] != 0 {
		t.Errorf("byte1 (flags) = %d, want 0", h[1])
	}

	if h[2] != 0 || h[3] != 10 {
		t.Errorf("length bytes = %d,%d, want 0,10", h[2], h[3])
	}

	if h[4] != 0 || h[5] != 0 {
		t.Errorf("group bytes = %d,%d, want 0,0", h[4], h[5])
	}

	if h[6] != 5 {
		t.Errorf("seq = %d, want 5", h[6])
	}

	if h[7] != 0 {
		t.Errorf("id = %d, want 0", h[7])
	}
}

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	body := []byte{0xa1, 0x61, 0x64, 0x64, 0x70, 0x69, 0x6e, 0x67} // {"d":"ping"}

	datagram := EncodeFrame(OpWrite, GroupHDD, IDHDDInfo, 42, body)

	frame, err := DecodeFrame(datagram)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}

	if frame.Op != OpWrite || frame.Group != GroupHDD || frame.ID != IDHDDInfo || frame.Sequence != 42 {
		t.Fatalf("decoded header mismatch: %+v", frame)
	}

	if string(frame.Body) != string(body) {
		t.Fatalf("decoded body mismatch: got %x want %x", frame.Body, body)
	}
}

func TestDecodeFrameTooShort(t *testing.T) {
	if _, err := DecodeFrame([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for too-short datagram")
	}
}

func TestDecodeFrameTruncatedBody(t *testing.T) {
	datagram := EncodeFrame(OpRead, GroupDefault, IDOSInfo, 1, []byte{1, 2, 3, 4})
	truncated := datagram[:len(datagram)-2]

	if _, err := DecodeFrame(truncated); err == nil {
		t.Fatal("expected error for truncated body")
	}
}
