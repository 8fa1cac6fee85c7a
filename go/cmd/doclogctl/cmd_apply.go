package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/docreplica/synclog/go/ops"
	"github.com/docreplica/synclog/go/value"
)

type cmdApply struct {
	Base string `long:"base" description:"Path to the base JSON document" required:"true"`
	Ops  string `long:"ops" description:"Path to a JSON-encoded operation list (ops.MarshalOps form)" required:"true"`
}

func (cmd cmdApply) Execute(_ []string) error {
	base, err := readValue(cmd.Base)
	if err != nil {
		return fmt.Errorf("reading --base: %w", err)
	}
	opsData, err := os.ReadFile(cmd.Ops)
	if err != nil {
		return fmt.Errorf("reading --ops: %w", err)
	}
	txOps, err := ops.UnmarshalOps(opsData)
	if err != nil {
		return fmt.Errorf("decoding ops: %w", err)
	}

	result, err := ops.ApplyTxImmutable(base, txOps, nil)
	if err != nil {
		return fmt.Errorf("applying ops: %w", err)
	}

	out, err := value.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Println(color.GreenString("result:"))
	fmt.Println(string(out))
	return nil
}
