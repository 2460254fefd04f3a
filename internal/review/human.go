package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/zterm/internal/logging"
)

// stopReason is reported when the operator stops a command.
const stopReason = "LLM danger detected."

// Human asks an operator to approve, edit or stop each command.
type Human struct {
	in     *bufio.Reader
	out    io.Writer
	logger *logging.Logger
}

// NewHuman creates a gate that prompts on out and reads answers from in.
func NewHuman(in io.Reader, out io.Writer, logger *logging.Logger) *Human {
	return &Human{
		in:     bufio.NewReader(in),
		out:    out,
		logger: logging.OrNop(logger).Component("review"),
	}
}

// Review shows the command and waits for a choice. An invalid choice is
// asked again; closed input aborts.
func (h *Human) Review(ctx context.Context, command string) (Decision, error) {
	fmt.Fprintf(h.out, "The LLM would like to run the command `%s`\n", command)

	for {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}

		fmt.Fprint(h.out, "  1. Proceed\n  2. Edit command\n  3. Stop\nChoice: ")
		choice, err := h.readLine()
		if err != nil {
			return h.closed(command, err)
		}

		switch strings.ToLower(choice) {
		case "1", "p", "proceed":
			h.logger.Info("Command approved", zap.String("command", command))
			return Decision{Action: Proceed, Command: command}, nil

		case "2", "e", "edit":
			fmt.Fprint(h.out, "Replace it with: ")
			replacement, err := h.readLine()
			if err != nil {
				return h.closed(command, err)
			}
			if replacement == "" {
				fmt.Fprintln(h.out, "Empty command, choose again.")
				continue
			}
			h.logger.Info("Command replaced",
				zap.String("command", command),
				zap.String("replacement", replacement))
			return Decision{Action: Replace, Command: replacement}, nil

		case "3", "s", "stop":
			h.logger.Info("Command stopped", zap.String("command", command))
			return Decision{Action: Abort, Command: command, Reason: stopReason}, nil

		default:
			fmt.Fprintf(h.out, "Invalid choice %q.\n", choice)
		}
	}
}

func (h *Human) closed(command string, err error) (Decision, error) {
	if err != io.EOF {
		return Decision{}, fmt.Errorf("read review answer: %w", err)
	}
	fmt.Fprintln(h.out)
	h.logger.Info("Review input closed, stopping", zap.String("command", command))
	return Decision{Action: Abort, Command: command, Reason: "review input closed"}, nil
}

// readLine returns the next trimmed line. A final line without a newline
// is returned before io.EOF.
func (h *Human) readLine() (string, error) {
	line, err := h.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
