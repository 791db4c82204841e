package process_blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"livemem/process"
	"livemem/process/memory_map"
)

const (
	metadataFile  = "metadata.json"
	memoryMapFile = "process_memory_map.json"

	// MaxRegionSize skips regions larger than this when saving.
	MaxRegionSize = 256 << 20
)

type metadata struct {
	PID  process.ProcessID            `json:"pid"`
	Name string                       `json:"name"`
	Base process.ProcessMemoryAddress `json:"base"`
}

func blobName(region memory_map.MemoryMapItem) string {
	return fmt.Sprintf("blob_0x%x_%d.bin", region.Address, region.Size)
}

// Save writes metadata, the memory map and every readable region of proc
// into dirname. Regions that fail to read are skipped, not fatal.
func Save(proc process.Process, name, dirname string) (saved int, err error) {
	if err := os.MkdirAll(dirname, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := proc.UpdateMemoryMap(); err != nil {
		return 0, fmt.Errorf("failed to update memory map: %w", err)
	}

	mm, err := proc.GetMemoryMap()
	if err != nil {
		return 0, err
	}

	meta := metadata{PID: proc.GetPID(), Name: name, Base: proc.BaseAddress()}
	if err := writeJSON(filepath.Join(dirname, metadataFile), meta); err != nil {
		return 0, err
	}

	var kept []memory_map.MemoryMapItem
	for _, region := range mm {
		if !region.IsReadable() || region.Size > MaxRegionSize {
			continue
		}

		data, err := proc.ReadMemory(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			continue
		}

		if err := os.WriteFile(filepath.Join(dirname, blobName(region)), data, 0644); err != nil {
			return saved, fmt.Errorf("failed to write blob: %w", err)
		}
		kept = append(kept, region)
		saved++
	}

	if err := writeJSON(filepath.Join(dirname, memoryMapFile), kept); err != nil {
		return saved, err
	}

	return saved, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load replaces the dump's contents with a dump saved by Save.
func (p *ProcessDump) Load(dirname string) error {
	metadataBytes, err := os.ReadFile(filepath.Join(dirname, metadataFile))
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta metadata
	if err := json.Unmarshal(metadataBytes, &meta); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	mmBytes, err := os.ReadFile(filepath.Join(dirname, memoryMapFile))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	var mm []memory_map.MemoryMapItem
	if err := json.Unmarshal(mmBytes, &mm); err != nil {
		return fmt.Errorf("failed to unmarshal memory map: %w", err)
	}

	blobs := make(map[uint64][]byte, len(mm))
	loaded := mm[:0]
	for _, region := range mm {
		data, err := os.ReadFile(filepath.Join(dirname, blobName(region)))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read blob: %w", err)
		}
		blobs[region.Address] = data
		loaded = append(loaded, region)
	}
	memory_map.Sort(loaded)

	p.mu.Lock()
	p.PID = meta.PID
	p.Name = meta.Name
	p.base = meta.Base
	p.memoryMap = loaded
	p.blobs = blobs
	p.mu.Unlock()

	p.alive.Store(true)
	return nil
}
