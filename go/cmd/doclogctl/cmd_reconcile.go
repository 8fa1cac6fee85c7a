package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/docreplica/synclog/go/ops"
	"github.com/docreplica/synclog/go/reconcile"
	"github.com/docreplica/synclog/go/value"
)

type cmdReconcile struct {
	Current string `long:"current" description:"Path to the current-state JSON document" required:"true"`
	Target  string `long:"target" description:"Path to the target-state JSON document" required:"true"`
}

func (cmd cmdReconcile) Execute(_ []string) error {
	current, err := readValue(cmd.Current)
	if err != nil {
		return fmt.Errorf("reading --current: %w", err)
	}
	target, err := readValue(cmd.Target)
	if err != nil {
		return fmt.Errorf("reading --target: %w", err)
	}

	diffOps, err := reconcile.Compute(current, target)
	if err != nil {
		return fmt.Errorf("computing reconcile ops: %w", err)
	}
	if len(diffOps) == 0 {
		fmt.Println(color.YellowString("no ops needed; documents already match"))
		return nil
	}

	data, err := ops.MarshalOps(diffOps)
	if err != nil {
		return fmt.Errorf("marshaling ops: %w", err)
	}
	fmt.Println(color.GreenString("%d op(s):", len(diffOps)))
	fmt.Println(string(data))
	return nil
}

func readValue(path string) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, err
	}
	return value.Parse(data)
}
