// Package workfile loads the JSON document that tells vadpdumper which VM
// and disk to operate against and, for a dump, which byte ranges changed
// since the last backup.
package workfile

import (
	"encoding/json"
	"fmt"
	"os"
)

// ConnParams is the ConnParams subtree: how to reach vCenter/ESXi and
// which VM (and, for a dump, snapshot) to attach to.
type ConnParams struct {
	VMMoRef            string `json:"VmMoRef"`
	VsphereHostName    string `json:"VsphereHostName"`
	VsphereThumbPrint  string `json:"VsphereThumbPrint"`
	VsphereUsername    string `json:"VsphereUsername"`
	VspherePassword    string `json:"VspherePassword"`
	VsphereSnapshotRef string `json:"VsphereSnapshotMoRef"`
}

// DiskParams is the DiskParams subtree: the path of the VMDK to open.
type DiskParams struct {
	DiskPath string `json:"diskPath"`
}

// ChangedArea is one byte-addressed interval CBT reports as modified.
type ChangedArea struct {
	Start  uint64 `json:"start"`
	Length uint64 `json:"length"`
}

// DiskChangeInfo is the DiskChangeInfo subtree: the disk's total size, the
// absolute offset the stream is encoded against, and the sorted, disjoint
// list of changed byte ranges.
type DiskChangeInfo struct {
	Length      uint64        `json:"length"`
	StartOffset uint64        `json:"startOffset"`
	ChangedArea []ChangedArea `json:"changedArea"`
}

// WorkFile is the fully parsed and validated work-file document.
type WorkFile struct {
	ConnParams     ConnParams
	DiskParams     DiskParams
	DiskChangeInfo DiskChangeInfo
}

// document mirrors the on-disk JSON shape before validation; every
// subtree is a pointer so a missing one can be told apart from an empty
// one.
type document struct {
	ConnParams     *ConnParams     `json:"ConnParams"`
	DiskParams     *DiskParams     `json:"DiskParams"`
	DiskChangeInfo *DiskChangeInfo `json:"DiskChangeInfo"`
}

// LoadOptions controls per-operation validation: whether a snapshot moref
// is required (dump only) and a command-line disk-name override.
type LoadOptions struct {
	RequireSnapshotMoRef bool
	DiskNameOverride     string
}

// Load reads and validates the work file at path. Missing mandatory keys
// are reported with the name of the offending key so the caller's error
// message is actionable without a JSON dump.
func Load(path string, opts LoadOptions) (WorkFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WorkFile{}, fmt.Errorf("workfile: read %q: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return WorkFile{}, fmt.Errorf("workfile: parse %q: %w", path, err)
	}

	if doc.ConnParams == nil {
		return WorkFile{}, fmt.Errorf("workfile: missing required key %q", "ConnParams")
	}
	if doc.DiskParams == nil && opts.DiskNameOverride == "" {
		return WorkFile{}, fmt.Errorf("workfile: missing required key %q", "DiskParams")
	}
	if doc.DiskChangeInfo == nil {
		return WorkFile{}, fmt.Errorf("workfile: missing required key %q", "DiskChangeInfo")
	}

	wf := WorkFile{
		ConnParams:     *doc.ConnParams,
		DiskChangeInfo: *doc.DiskChangeInfo,
	}
	if doc.DiskParams != nil {
		wf.DiskParams = *doc.DiskParams
	}
	if opts.DiskNameOverride != "" {
		wf.DiskParams.DiskPath = opts.DiskNameOverride
	}

	if err := validate(wf, opts); err != nil {
		return WorkFile{}, err
	}
	return wf, nil
}

func validate(wf WorkFile, opts LoadOptions) error {
	type mandatory struct {
		name  string
		value string
	}
	fields := []mandatory{
		{"ConnParams.VmMoRef", wf.ConnParams.VMMoRef},
		{"ConnParams.VsphereHostName", wf.ConnParams.VsphereHostName},
		{"ConnParams.VsphereUsername", wf.ConnParams.VsphereUsername},
		{"ConnParams.VspherePassword", wf.ConnParams.VspherePassword},
		{"DiskParams.diskPath", wf.DiskParams.DiskPath},
	}
	if opts.RequireSnapshotMoRef {
		fields = append(fields, mandatory{"ConnParams.VsphereSnapshotMoRef", wf.ConnParams.VsphereSnapshotRef})
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("workfile: missing required key %q", f.name)
		}
	}

	if wf.DiskChangeInfo.Length == 0 {
		return fmt.Errorf("workfile: missing required key %q", "DiskChangeInfo.length")
	}

	var prevEnd uint64
	for i, area := range wf.DiskChangeInfo.ChangedArea {
		if area.Length == 0 {
			return fmt.Errorf("workfile: changedArea[%d] has zero length", i)
		}
		if i > 0 && area.Start < prevEnd {
			return fmt.Errorf("workfile: changedArea[%d] overlaps or precedes changedArea[%d]", i, i-1)
		}
		prevEnd = area.Start + area.Length
	}

	return nil
}
