package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Command is a Locator backed by an external program that prints a JSON
// object with "latitude" and "longitude" fields on stdout, such as
// termux-location or CoreLocationCLI -json.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a command line on whitespace.
func ParseCommand(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty location command")
	}
	return &Command{Name: fields[0], Args: fields[1:]}, nil
}

// Locate runs the command and decodes its output.
func (c *Command) Locate(ctx context.Context) (Coordinate, error) {
	path, err := exec.LookPath(c.Name)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %s not found", ErrUnsupported, c.Name)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Coordinate{}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if strings.Contains(strings.ToLower(msg), "permission") {
				return Coordinate{}, fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
			}
			return Coordinate{}, fmt.Errorf("%w: %s exited with %d", ErrUnavailable, c.Name, exitErr.ExitCode())
		}
		return Coordinate{}, fmt.Errorf("running %s: %w", c.Name, err)
	}

	return parseFix(stdout.Bytes())
}

// parseFix decodes a {"latitude": .., "longitude": ..} object.
func parseFix(data []byte) (Coordinate, error) {
	var fix struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(data), &fix); err != nil {
		return Coordinate{}, fmt.Errorf("%w: decoding fix: %v", ErrUnavailable, err)
	}
	if fix.Latitude == nil || fix.Longitude == nil {
		return Coordinate{}, fmt.Errorf("%w: fix missing latitude or longitude", ErrUnavailable)
	}
	return Coordinate{Latitude: *fix.Latitude, Longitude: *fix.Longitude}, nil
}
