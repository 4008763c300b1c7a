package charset

import "testing"

func TestGuessEncodingFromContentType(t *testing.T) {
	got := GuessEncoding("text/xml; charset=ISO-8859-1", []byte("<?xml version=\"1.0\"?>"))
	if got != ISO88591 {
		t.Fatalf("GuessEncoding() = %s, want %s", got, ISO88591)
	}
}

func TestGuessEncodingFromXMLDecl(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="US-ASCII"?><methodCall/>`)
	got := GuessEncoding("", body)
	if got != USASCII {
		t.Fatalf("GuessEncoding() = %s, want %s", got, USASCII)
	}
}

func TestGuessEncodingFromBOM(t *testing.T) {
	body := append([]byte{0xEF, 0xBB, 0xBF}, []byte("<?xml version=\"1.0\"?>")...)
	got := GuessEncoding("", body)
	if got != UTF8 {
		t.Fatalf("GuessEncoding() = %s, want %s", got, UTF8)
	}
}

func TestGuessEncodingDefaultsToUTF8(t *testing.T) {
	if got := GuessEncoding("", []byte("<methodCall/>")); got != UTF8 {
		t.Fatalf("GuessEncoding() = %s, want %s", got, UTF8)
	}
}

func TestTranscodeISO88591RoundTrip(t *testing.T) {
	original := "café" // "café"
	encoded, err := Transcode([]byte(original), UTF8, ISO88591)
	if err != nil {
		t.Fatalf("Transcode to ISO-8859-1: %v", err)
	}
	if len(encoded) != 4 {
		t.Fatalf("encoded length = %d, want 4 (one byte per rune)", len(encoded))
	}
	back, err := Transcode(encoded, ISO88591, UTF8)
	if err != nil {
		t.Fatalf("Transcode back to UTF-8: %v", err)
	}
	if string(back) != original {
		t.Fatalf("round trip = %q, want %q", back, original)
	}
}

func TestTranscodeSameCharsetIsNoop(t *testing.T) {
	data := []byte("hello")
	out, err := Transcode(data, "utf-8", "UTF-8")
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if string(out) != "hello" {
		t.Fatalf("Transcode() = %q, want %q", out, "hello")
	}
}

func TestEncodeEntitiesEscapesSpecialChars(t *testing.T) {
	out, err := EncodeEntities(`a & b < c > d`, UTF8, UTF8)
	if err != nil {
		t.Fatalf("EncodeEntities: %v", err)
	}
	want := "a &amp; b &lt; c &gt; d"
	if out != want {
		t.Fatalf("EncodeEntities() = %q, want %q", out, want)
	}
}

func TestEncodeEntitiesUSASCIINumericRefs(t *testing.T) {
	out, err := EncodeEntities("café", UTF8, USASCII)
	if err != nil {
		t.Fatalf("EncodeEntities: %v", err)
	}
	want := "caf&#233;"
	if out != want {
		t.Fatalf("EncodeEntities() = %q, want %q", out, want)
	}
}

func TestEncodeEntitiesISO88591AllowsLatin1(t *testing.T) {
	out, err := EncodeEntities("café", UTF8, ISO88591)
	if err != nil {
		t.Fatalf("EncodeEntities: %v", err)
	}
	// "é" (U+00E9) is representable directly in ISO-8859-1, so it must not
	// be turned into a numeric reference — the output bytes are the
	// ISO-8859-1 encoding of "café".
	want := string([]byte{'c', 'a', 'f', 0xe9})
	if out != want {
		t.Fatalf("EncodeEntities() = %q (% x), want %q (% x)", out, []byte(out), want, []byte(want))
	}
}

func TestEncodeEntitiesBeyondLatin1NumericRef(t *testing.T) {
	// U+1F600 (grinning face) has no code point in ISO-8859-1.
	out, err := EncodeEntities("hi \U0001F600", UTF8, ISO88591)
	if err != nil {
		t.Fatalf("EncodeEntities: %v", err)
	}
	want := "hi &#128512;"
	if out != want {
		t.Fatalf("EncodeEntities() = %q, want %q", out, want)
	}
}
