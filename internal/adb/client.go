package adb

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"zapp/internal/logger"
)

const (
	// Port is the standard ADB-over-TCP port
	Port = 5555

	// commandTimeout is the hard ceiling per adb invocation; a hung adb
	// server must never wedge the session actor.
	commandTimeout = 5 * time.Second

	livenessToken = "zapp_alive"
)

// Client shells out to the adb binary. Every command spawns a fresh
// subprocess with an argv array; nothing is shell-interpolated. Concurrent
// commands to the same device are serialized by the caller.
type Client struct {
	adbPath string
	address string
	logger  zerolog.Logger
}

// NewClient creates an ADB client for the given TV address (ip, no port)
func NewClient(adbPath, ip string) *Client {
	if adbPath == "" {
		adbPath = "adb"
	}
	return &Client{
		adbPath: adbPath,
		address: fmt.Sprintf("%s:%d", ip, Port),
		logger:  logger.For("adb").With().Str("address", fmt.Sprintf("%s:%d", ip, Port)).Logger(),
	}
}

// Address returns the ip:port the client targets
func (c *Client) Address() string {
	return c.address
}

// run executes one adb command with the hard timeout
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	c.logger.Debug().Strs("args", args).Msg("Running adb command")

	cmd := exec.CommandContext(ctx, c.adbPath, args...)
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return output, fmt.Errorf("adb command timed out after %s", commandTimeout)
		}
		return output, fmt.Errorf("adb command failed: %w (%s)", err, output)
	}
	return output, nil
}

// Connect issues `adb connect`, wakes the device, then verifies liveness
// with an echo round-trip. The TV shows its USB-debugging approval dialog on
// the first attempt; an unapproved connection fails the echo.
func (c *Client) Connect(ctx context.Context) error {
	out, err := c.run(ctx, "connect", c.address)
	if err != nil {
		return err
	}
	// adb connect reports failure with exit code 0
	low := strings.ToLower(out)
	if strings.Contains(low, "failed") || strings.Contains(low, "unable") {
		return fmt.Errorf("adb connect refused: %s", out)
	}

	// Harmless wake keyevent; failure here is not fatal
	if _, err := c.Shell(ctx, "input", "keyevent", fmt.Sprintf("%d", keycodeWakeup)); err != nil {
		c.logger.Debug().Err(err).Msg("Wake keyevent failed")
	}

	if err := c.Ping(ctx); err != nil {
		// Clean up the half-open registration before surfacing
		if _, derr := c.run(ctx, "disconnect", c.address); derr != nil {
			c.logger.Debug().Err(derr).Msg("Cleanup disconnect failed")
		}
		return err
	}

	c.logger.Info().Msg("ADB connection established")
	return nil
}

// Disconnect drops the adb server's registration for this device
func (c *Client) Disconnect(ctx context.Context) error {
	_, err := c.run(ctx, "disconnect", c.address)
	return err
}

// Shell runs a shell command on the device
func (c *Client) Shell(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-s", c.address, "shell"}, args...)
	return c.run(ctx, full...)
}

// Ping verifies device liveness with an echo round-trip
func (c *Client) Ping(ctx context.Context) error {
	out, err := c.Shell(ctx, "echo", livenessToken)
	if err != nil {
		return fmt.Errorf("liveness check failed: %w", err)
	}
	if !strings.Contains(out, livenessToken) {
		return fmt.Errorf("liveness check failed: unexpected output %q", out)
	}
	return nil
}

// SendKeyEvent sends a single keyevent code
func (c *Client) SendKeyEvent(ctx context.Context, code int) error {
	_, err := c.Shell(ctx, "input", "keyevent", fmt.Sprintf("%d", code))
	return err
}

// SendText types a string on the device. Special characters become discrete
// keyevents; literal runs are shell-escaped with spaces encoded as %s, which
// is what `input text` expects.
func (c *Client) SendText(ctx context.Context, text string) error {
	var run []rune
	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		encoded := encodeInputText(string(run))
		run = run[:0]
		_, err := c.Shell(ctx, "input", "text", encoded)
		return err
	}

	for _, r := range text {
		code, special := specialKeycode(r)
		if !special {
			run = append(run, r)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if err := c.SendKeyEvent(ctx, code); err != nil {
			return err
		}
	}
	return flush()
}

// specialKeycode maps control characters to their keyevent equivalents
func specialKeycode(r rune) (int, bool) {
	switch r {
	case '\n':
		return keycodeEnter, true
	case '\t':
		return keycodeTab, true
	case '\b':
		return keycodeDel, true
	case 0x1b: // ESC
		return keycodeEscape, true
	default:
		return 0, false
	}
}

// inputTextEscapes is the substitution table for `adb shell input text`
var inputTextEscapes = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`'`, `\'`,
	"`", "\\`",
	`$`, `\$`,
	`&`, `\&`,
	`;`, `\;`,
	`|`, `\|`,
	`<`, `\<`,
	`>`, `\>`,
	`(`, `\(`,
	`)`, `\)`,
	`*`, `\*`,
	`~`, `\~`,
	" ", "%s",
)

// encodeInputText shell-escapes a literal text run and space-encodes it
func encodeInputText(s string) string {
	return inputTextEscapes.Replace(s)
}
