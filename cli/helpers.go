package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Picocrypt/zxcvbn-go"
	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// MinPasswordScore is the lowest zxcvbn score (0-4) accepted for a new
// master password unless weak passwords are explicitly allowed.
const MinPasswordScore = 2

// ClipboardClearDelay is how long a copied password stays on the clipboard.
const ClipboardClearDelay = 30 * time.Second

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordEmpty    = errors.New("password cannot be empty")
	ErrPasswordWeak     = errors.New("master password is too weak")
)

// Swapped out in tests.
var (
	writeClipboard = clipboard.WriteAll
	afterFunc      = time.AfterFunc
)

// PasswordScore rates a password from 0 (guessable) to 4 (strong).
func PasswordScore(pw string) int {
	if pw == "" {
		return 0
	}
	return zxcvbn.PasswordStrength(pw, nil).Score
}

// checkStrength rejects weak master passwords.
func checkStrength(pw []byte, allowWeak bool) error {
	if len(pw) == 0 {
		return ErrPasswordEmpty
	}
	if allowWeak {
		return nil
	}
	if score := PasswordScore(string(pw)); score < MinPasswordScore {
		return errors.Wrapf(ErrPasswordWeak, "score %d/4, need %d", score, MinPasswordScore)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ReadPasswordMasked reads a line from the terminal in raw mode, echoing
// '*' for every character.
func ReadPasswordMasked(out io.Writer, prompt string) ([]byte, error) {
	fmt.Fprint(out, prompt)
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, errors.Wrap(err, "reading password")
	}
	defer term.Restore(fd, state)

	var input []rune
	for {
		var buf [utf8.UTFMax]byte
		n, err := os.Stdin.Read(buf[:1])
		if err != nil || n == 0 {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			fmt.Fprint(out, "\r\n")
			return nil, errors.Wrap(err, "reading password")
		}

		c := buf[0]
		switch c {
		case 13, 10: // Enter
			fmt.Fprint(out, "\r\n")
			pw := []byte(string(input))
			for i := range input {
				input[i] = 0
			}
			return pw, nil
		case 3: // Ctrl+C
			fmt.Fprint(out, "\r\n")
			return nil, errors.New("interrupted")
		case 127, 8: // Backspace
			if len(input) > 0 {
				input = input[:len(input)-1]
				fmt.Fprint(out, "\b \b")
			}
		default:
			// Collect the continuation bytes of a multi-byte rune.
			size := 1
			for !utf8.FullRune(buf[:size]) && size < utf8.UTFMax {
				if _, err := os.Stdin.Read(buf[size : size+1]); err != nil {
					break
				}
				size++
			}
			r, _ := utf8.DecodeRune(buf[:size])
			input = append(input, r)
			fmt.Fprint(out, "*")
		}
	}
}

// readLine reads one line and strips the line ending.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func prompt(r *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := readLine(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// parseIndex converts a 1-based entry number into a slice index.
func parseIndex(arg string, n int) (int, error) {
	num, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, errors.Errorf("invalid entry number %q", arg)
	}
	if num < 1 || num > n {
		return 0, errors.Errorf("entry %d does not exist", num)
	}
	return num - 1, nil
}

// copySecret copies secret to the clipboard and clears it after delay.
// The returned timer is nil when no clear was scheduled.
func copySecret(secret []byte, delay time.Duration) (*time.Timer, error) {
	if err := writeClipboard(string(secret)); err != nil {
		return nil, errors.Wrap(err, "copy to clipboard")
	}
	if delay <= 0 {
		return nil, nil
	}
	return afterFunc(delay, func() {
		writeClipboard("")
	}), nil
}

// clearPending clears the clipboard now if t has not fired yet.
func clearPending(t *time.Timer) {
	if t != nil && t.Stop() {
		writeClipboard("")
	}
}
