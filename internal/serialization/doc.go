// Package serialization saves and restores training checkpoints of
// autodiff graphs.
//
// A checkpoint holds parameter values, optionally their gradients, and
// optimizer state. It is captured from a graph with Snapshot and applied
// with Restore, which only use the graph's accessor primitives (Get,
// GetGrad, NameOf, Load, LoadGrad).
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    0x00 magic "FGRD"
//	    0x04 version (uint32 LE)
//	    0x08 flags (uint32 LE)
//	    0x0C reserved
//	    0x10 header size (uint64 LE)
//	    0x18 reserved
//	    0x20 SHA-256 of the tensor data section
//	  [Header: JSON metadata]
//	  [Tensor data: little-endian float32 or float16, 64-byte aligned]
//
// Example usage:
//
//	ckpt, err := serialization.Snapshot(g, params, serialization.SnapshotOptions{})
//	if err != nil {
//	    return err
//	}
//	if err := serialization.Save("run.fgrd", ckpt, serialization.WriteOptions{}); err != nil {
//	    return err
//	}
//
//	loaded, err := serialization.Load("run.fgrd")
//	if err != nil {
//	    return err
//	}
//	err = serialization.Restore(g, loaded)
package serialization
