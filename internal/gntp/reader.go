package gntp

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// LineReader reads newline-terminated lines from the connection and,
// once a cipher is installed, serves lines decrypted from the header
// ciphertext block ahead of raw stream reads.
type LineReader struct {
	r       *bufio.Reader
	cipher  *Cipher
	pending []string
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r)}
}

// SetCipher installs the per-request cipher. Call after the request
// line has been parsed and authenticated.
func (lr *LineReader) SetCipher(c *Cipher) {
	lr.cipher = c
}

// ReadLine returns the next logical line without its terminator.
// Decrypted header lines queued by DecryptHeaderBlock are served
// first. io.EOF means the peer closed before the request completed.
func (lr *LineReader) ReadLine() (string, error) {
	if len(lr.pending) > 0 {
		line := lr.pending[0]
		lr.pending = lr.pending[1:]
		return line, nil
	}
	line, err := lr.r.ReadString('\n')
	if err != nil {
		// A partial line with no terminator is an incomplete request.
		return "", io.EOF
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// DecryptHeaderBlock consumes the ciphertext region that follows the
// request line (terminated by CRLF CRLF), decrypts it, and queues the
// plaintext header lines. No-op when the cipher is inactive.
func (lr *LineReader) DecryptHeaderBlock() error {
	if !lr.cipher.Active() {
		return nil
	}
	ciphertext, err := lr.readUntilBlankLine()
	if err != nil {
		return err
	}
	plaintext, err := lr.cipher.Decrypt(ciphertext)
	if err != nil {
		return err
	}
	lr.pending = append(lr.pending, splitLines(plaintext)...)
	return nil
}

// ReadPayload reads exactly length raw bytes off the wire and decrypts
// them as one independent block. The bytes are always fully consumed,
// keeping the stream aligned even when the caller discards the result.
func (lr *LineReader) ReadPayload(length int64) ([]byte, error) {
	raw := make([]byte, length)
	if _, err := io.ReadFull(lr.r, raw); err != nil {
		return nil, io.EOF
	}
	return lr.cipher.Decrypt(raw)
}

// readUntilBlankLine collects raw bytes up to, but not including, the
// first CRLF CRLF sequence. The terminator is consumed.
func (lr *LineReader) readUntilBlankLine() ([]byte, error) {
	var buf bytes.Buffer
	for {
		b, err := lr.r.ReadByte()
		if err != nil {
			return nil, io.EOF
		}
		buf.WriteByte(b)
		if b == '\n' && bytes.HasSuffix(buf.Bytes(), []byte("\r\n\r\n")) {
			return buf.Bytes()[:buf.Len()-4], nil
		}
	}
}

// splitLines breaks decrypted plaintext into logical lines with the
// same semantics as ReadLine: one line per terminator, plus a final
// unterminated fragment if the sender omitted the last newline.
func splitLines(data []byte) []string {
	var lines []string
	r := bufio.NewReader(bytes.NewReader(data))
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if line != "" {
				lines = append(lines, strings.TrimRight(line, "\r"))
			}
			return lines
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
}
