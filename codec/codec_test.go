package codec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/quantadb/quanta-go/dberr"
	"github.com/quantadb/quanta-go/protocol"
	"github.com/quantadb/quanta-go/protocol/serializer"
)

// createTestMessage creates a message with a payload of the given size.
func createTestMessage(t protocol.MessageType, size int) *protocol.Message {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	return protocol.NewMessage(t, 1, 2, 42, payload)
}

func assertMessagesEqual(t *testing.T, want, got *protocol.Message) {
	t.Helper()
	if got.Type != want.Type {
		t.Errorf("type mismatch: want %v, got %v", want.Type, got.Type)
	}
	if got.Sender != want.Sender || got.Recipient != want.Recipient {
		t.Errorf("routing mismatch: want %d->%d, got %d->%d",
			want.Sender, want.Recipient, got.Sender, got.Recipient)
	}
	if got.Sequence != want.Sequence {
		t.Errorf("sequence mismatch: want %d, got %d", want.Sequence, got.Sequence)
	}
	if got.Timestamp != want.Timestamp {
		t.Errorf("timestamp mismatch: want %d, got %d", want.Timestamp, got.Timestamp)
	}
	if !bytes.Equal(got.Payload, want.Payload) {
		t.Errorf("payload mismatch: want %d bytes, got %d bytes",
			len(want.Payload), len(got.Payload))
	}
	if got.Compressed() {
		t.Error("decoded message must not carry the compression flag")
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		msgType     protocol.MessageType
		payloadSize int
	}{
		{"empty payload", protocol.MsgTPing, 0},
		{"small payload", protocol.MsgTData, 64},
		{"threshold payload", protocol.MsgTData, DefaultCompressionThreshold},
		{"large payload", protocol.MsgTData, 64 * 1024},
		{"error message", protocol.MsgTError, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			msg := createTestMessage(tt.msgType, tt.payloadSize)

			encoded, err := c.Encode(msg)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			decoded, err := c.Decode(encoded)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			assertMessagesEqual(t, msg, decoded)
		})
	}
}

func TestCodec_RoundTripCompressed(t *testing.T) {
	c := New()
	c.EnableCompression(DefaultCompressionThreshold)

	// Highly repetitive payload, well above the threshold
	payload := bytes.Repeat([]byte("quanta"), 4096)
	msg := protocol.NewMessage(protocol.MsgTData, 1, 2, 7, payload)

	encoded, err := c.Encode(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(encoded) >= len(payload) {
		t.Errorf("expected compressed frame smaller than payload: frame=%d payload=%d",
			len(encoded), len(payload))
	}

	decoded, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	assertMessagesEqual(t, msg, decoded)
}

func TestCodec_CompressionSkippedBelowThreshold(t *testing.T) {
	c := New()
	c.EnableCompression(DefaultCompressionThreshold)

	msg := createTestMessage(protocol.MsgTData, 128)
	encoded, err := c.Encode(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var wire protocol.Message
	if err := serializer.NewBinarySerializer().Deserialize(encoded, &wire); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if wire.Compressed() {
		t.Error("payload below threshold must not be compressed")
	}
}

func TestCodec_EncodeDoesNotMutateInput(t *testing.T) {
	c := New()
	c.EnableCompression(DefaultCompressionThreshold)

	payload := bytes.Repeat([]byte("x"), 8192)
	msg := protocol.NewMessage(protocol.MsgTData, 1, 2, 9, payload)
	wantChecksum := msg.Checksum

	if _, err := c.Encode(msg); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if msg.Compressed() {
		t.Error("input message flags were mutated")
	}
	if msg.Checksum != wantChecksum {
		t.Error("input message checksum was mutated")
	}
	if len(msg.Payload) != 8192 {
		t.Error("input message payload was mutated")
	}
}

func TestCodec_CorruptionDetected(t *testing.T) {
	c := New()
	msg := createTestMessage(protocol.MsgTData, 512)

	encoded, err := c.Encode(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// Flip a byte inside the payload region (last byte of the frame)
	encoded[len(encoded)-1] ^= 0xFF

	_, err = c.Decode(encoded)
	if err == nil {
		t.Fatal("expected checksum error for corrupted frame")
	}
	if dberr.KindOf(err) != dberr.KindChecksumMismatch {
		t.Errorf("expected checksum mismatch, got: %v", err)
	}
}

func TestCodec_MessageTooLarge(t *testing.T) {
	c := NewWithSerializer(serializer.NewBinarySerializer(), 1024)

	msg := createTestMessage(protocol.MsgTData, 2048)
	_, err := c.Encode(msg)
	if err == nil {
		t.Fatal("expected size error for oversized message")
	}
	if dberr.KindOf(err) != dberr.KindMessageTooLarge {
		t.Errorf("expected message too large, got: %v", err)
	}
}

func TestCodec_EncodeWithLength(t *testing.T) {
	c := New()
	msg := createTestMessage(protocol.MsgTData, 100)

	framed, err := c.EncodeWithLength(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(framed) < 4 {
		t.Fatalf("frame too short: %d bytes", len(framed))
	}

	length := binary.BigEndian.Uint32(framed[:4])
	if int(length) != len(framed)-4 {
		t.Errorf("length prefix %d does not match body length %d",
			length, len(framed)-4)
	}
}

func TestCodec_StreamRoundTrip(t *testing.T) {
	c := New()
	var buf bytes.Buffer

	msgs := []*protocol.Message{
		createTestMessage(protocol.MsgTPing, 0),
		createTestMessage(protocol.MsgTData, 300),
		createTestMessage(protocol.MsgTHeartbeat, 16),
	}
	for _, msg := range msgs {
		if err := c.WriteMessage(&buf, msg); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	for i, want := range msgs {
		got, err := c.ReadMessage(&buf)
		if err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		assertMessagesEqual(t, want, got)
	}
}

func TestCodec_ReadRejectsOversizedFrame(t *testing.T) {
	c := NewWithSerializer(serializer.NewBinarySerializer(), 1024)

	var buf bytes.Buffer
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], 1<<30)
	buf.Write(hdr[:])

	_, err := c.ReadMessage(&buf)
	if err == nil {
		t.Fatal("expected size error for oversized frame header")
	}
	if dberr.KindOf(err) != dberr.KindMessageTooLarge {
		t.Errorf("expected message too large, got: %v", err)
	}
}

func TestCodec_ReadTruncatedStream(t *testing.T) {
	c := New()
	msg := createTestMessage(protocol.MsgTData, 100)

	framed, err := c.EncodeWithLength(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// Drop the last half of the frame
	buf := bytes.NewBuffer(framed[:len(framed)/2])
	_, err = c.ReadMessage(buf)
	if err == nil {
		t.Fatal("expected error for truncated stream")
	}
	if dberr.KindOf(err) != dberr.KindNetwork {
		t.Errorf("expected network error, got: %v", err)
	}
}

func BenchmarkCodec_Encode(b *testing.B) {
	c := New()
	msg := createTestMessage(protocol.MsgTData, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Encode(msg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCodec_Decode(b *testing.B) {
	c := New()
	msg := createTestMessage(protocol.MsgTData, 1024)
	encoded, err := c.Encode(msg)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Decode(encoded); err != nil {
			b.Fatal(err)
		}
	}
}
