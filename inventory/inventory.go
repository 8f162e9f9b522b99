// Package inventory performs pre-flight validation of a work file's vCenter
// coordinates against the live inventory: it checks that the named VM and,
// for a dump, the named snapshot actually exist before any VDDK connection
// is attempted, turning a typo'd moref into a clear error message instead
// of an opaque VDDK connect failure several seconds into the run.
package inventory

import (
	"context"
	"fmt"
	"net/url"

	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
)

// Target names the VM (and, optionally, snapshot) a dump or restore is
// about to attach to.
type Target struct {
	Host          string
	Username      string
	Password      string
	VMMoRef       string
	SnapshotMoRef string
}

// ValidateTarget connects to Host and confirms VMMoRef resolves to a VM and,
// when SnapshotMoRef is set, that it resolves to a snapshot belonging to
// that VM. It reports an error naming exactly what could not be found.
func ValidateTarget(ctx context.Context, t Target) error {
	u := &url.URL{
		Scheme: "https",
		Host:   t.Host,
		Path:   "/sdk",
		User:   url.UserPassword(t.Username, t.Password),
	}

	c, err := govmomi.NewClient(ctx, u, true)
	if err != nil {
		return fmt.Errorf("inventory: connect to %s: %w", t.Host, err)
	}
	defer func() { _ = c.Logout(ctx) }()

	vmRef := types.ManagedObjectReference{Type: "VirtualMachine", Value: t.VMMoRef}
	vm := object.NewVirtualMachine(c.Client, vmRef)

	var vmProps mo.VirtualMachine
	if err := vm.Properties(ctx, vmRef, []string{"name", "snapshot"}, &vmProps); err != nil {
		return fmt.Errorf("inventory: VM %q not found: %w", t.VMMoRef, err)
	}

	if t.SnapshotMoRef == "" {
		return nil
	}

	if vmProps.Snapshot == nil {
		return fmt.Errorf("inventory: VM %q has no snapshots, but %q was requested", t.VMMoRef, t.SnapshotMoRef)
	}
	if !snapshotExists(vmProps.Snapshot.RootSnapshotList, t.SnapshotMoRef) {
		return fmt.Errorf("inventory: snapshot %q not found on VM %q", t.SnapshotMoRef, t.VMMoRef)
	}
	return nil
}

func snapshotExists(tree []types.VirtualMachineSnapshotTree, moref string) bool {
	for _, node := range tree {
		if node.Snapshot.Value == moref {
			return true
		}
		if snapshotExists(node.ChildSnapshotList, moref) {
			return true
		}
	}
	return false
}
