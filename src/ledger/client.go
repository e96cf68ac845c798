package ledger

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client invokes the concordium-client binary against a gRPC node and
// returns raw text output. All interpretation of that text lives in the
// parser; the exact output vocabulary is concordium-client's contract.
type Client struct {
	clientPath string
	grpcHost   string
}

func NewClient(clientPath, grpcHost string) *Client {
	return &Client{clientPath: clientPath, grpcHost: grpcHost}
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	args = append(args, "--grpc-ip", c.grpcHost, "--secure")
	cmd := exec.CommandContext(ctx, c.clientPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("concordium-client %s: %w: %s", args[0], err, msg)
		}
		return "", fmt.Errorf("concordium-client %s: %w", args[0], err)
	}

	return stdout.String(), nil
}

// AccountInfo returns the raw `account show` output for an address.
func (c *Client) AccountInfo(ctx context.Context, address string) (string, error) {
	return c.run(ctx, "account", "show", address)
}

// ConsensusParameters returns the raw `consensus show-parameters` output
// including the baker (validator) table.
func (c *Client) ConsensusParameters(ctx context.Context) (string, error) {
	return c.run(ctx, "consensus", "show-parameters", "--include-bakers")
}

// TransactionStatus returns the raw `transaction status` output for a hash.
func (c *Client) TransactionStatus(ctx context.Context, txHash string) (string, error) {
	return c.run(ctx, "transaction", "status", txHash)
}

// BlockInfo returns the raw `block show` output for a block hash.
func (c *Client) BlockInfo(ctx context.Context, blockHash string) (string, error) {
	return c.run(ctx, "block", "show", blockHash)
}
