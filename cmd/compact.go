package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/seedvault/internal/config"
)

// Compact compacts the database to reclaim unused space
func Compact(cfg *config.Config) {
	e := OpenEnvOrExit(cfg)

	// Get file size before
	info, err := os.Stat(cfg.Database)
	if err != nil {
		e.Close()
		HandleError(err)
	}
	sizeBefore := info.Size()

	// Compact closes the database
	if err := e.DB.Compact(); err != nil {
		HandleError(err)
	}

	// Get file size after
	info, err = os.Stat(cfg.Database)
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
