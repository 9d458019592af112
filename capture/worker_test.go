package capture

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

type staticCopier struct {
	text  string
	calls int
}

func (c *staticCopier) AttemptCopySelectedText() string {
	c.calls++
	return c.text
}

type panickingCopier struct{}

func (panickingCopier) AttemptCopySelectedText() string { panic("clipboard exploded") }

func readAllResponses(t *testing.T, out *bytes.Buffer) []Response {
	t.Helper()
	reader := bufio.NewReader(out)
	var resps []Response
	for {
		resp, err := readResponse(reader)
		if err != nil {
			return resps
		}
		resps = append(resps, resp)
	}
}

func TestServeAnswersCopyAndStopsOnExit(t *testing.T) {
	in := strings.NewReader(
		`{"seq":1,"cmd":"copy"}` + "\n" +
			`{"seq":2,"cmd":"copy"}` + "\n" +
			`{"seq":0,"cmd":"exit"}` + "\n" +
			`{"seq":3,"cmd":"copy"}` + "\n")
	var out bytes.Buffer
	copier := &staticCopier{text: "hello"}

	if err := Serve(in, &out, copier); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	resps := readAllResponses(t, &out)
	if len(resps) != 2 {
		t.Fatalf("got %d responses, want 2", len(resps))
	}
	for i, resp := range resps {
		if resp.Seq != uint64(i+1) || resp.Text != "hello" {
			t.Errorf("response %d = %+v", i, resp)
		}
	}
	if copier.calls != 2 {
		t.Errorf("copier called %d times, want 2", copier.calls)
	}
}

func TestServeReturnsOnClosedInput(t *testing.T) {
	var out bytes.Buffer
	if err := Serve(strings.NewReader(""), &out, &staticCopier{}); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestServeUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(`{"seq":7,"cmd":"paste"}` + "\n")
	if err := Serve(in, &out, &staticCopier{}); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	resps := readAllResponses(t, &out)
	if len(resps) != 1 || resps[0].Seq != 7 || resps[0].Error == "" {
		t.Errorf("responses = %+v, want one error reply for seq 7", resps)
	}
}

func TestServeRecoversCopierPanic(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(`{"seq":1,"cmd":"copy"}` + "\n")
	if err := Serve(in, &out, panickingCopier{}); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	resps := readAllResponses(t, &out)
	if len(resps) != 1 || resps[0].Text != "" {
		t.Errorf("responses = %+v, want one empty reply", resps)
	}
}

func TestServeRejectsMalformedFrame(t *testing.T) {
	var out bytes.Buffer
	if err := Serve(strings.NewReader("not json\n"), &out, &staticCopier{}); err == nil {
		t.Fatal("expected error for malformed frame")
	}
}

func TestReadFrameRejectsOversizedFrame(t *testing.T) {
	oversized := strings.Repeat("x", maxFrameBytes+1) + "\n"
	_, err := readFrame(newFrameReader(strings.NewReader(oversized)))
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("error = %v, want size error", err)
	}
}

func TestServeTruncatesOversizedSelection(t *testing.T) {
	link := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	big := link + " " + strings.Repeat("é", maxFrameBytes)
	in := strings.NewReader(
		`{"seq":1,"cmd":"copy"}` + "\n" +
			`{"seq":2,"cmd":"copy"}` + "\n")
	var out bytes.Buffer

	if err := Serve(in, &out, &staticCopier{text: big}); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	reader := newFrameReader(&out)
	for seq := uint64(1); seq <= 2; seq++ {
		resp, err := readResponse(reader)
		if err != nil {
			t.Fatalf("reply %d: %v", seq, err)
		}
		if resp.Seq != seq {
			t.Errorf("seq = %d, want %d", resp.Seq, seq)
		}
		if !strings.HasPrefix(resp.Text, link+" ") || len(resp.Text) >= len(big) {
			t.Errorf("reply %d text not truncated to a prefix (len %d)", seq, len(resp.Text))
		}
		if !utf8.ValidString(resp.Text) {
			t.Errorf("reply %d cut inside a rune", seq)
		}
	}
}

func TestEncodeResponseFitsEscapedText(t *testing.T) {
	// control characters escape to six bytes each
	raw, truncated, err := encodeResponse(Response{Seq: 9, Text: strings.Repeat("\x01", maxFrameBytes)})
	if err != nil {
		t.Fatalf("encodeResponse: %v", err)
	}
	if !truncated || len(raw) >= maxFrameBytes {
		t.Errorf("truncated=%v len=%d", truncated, len(raw))
	}
}
