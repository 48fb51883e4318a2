package builder

import (
	"fmt"
	"os"

	"github.com/untoldecay/Distillery/internal/coordinator"
	"github.com/untoldecay/Distillery/internal/utils"
	"github.com/untoldecay/Distillery/internal/vaultpath"
)

// writeVaultFile records provenance before writing so the watcher attributes
// the resulting event to the daemon, not the user.
func writeVaultFile(coord *coordinator.Coordinator, path, content string) error {
	if err := vaultpath.EnsureParent(path); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	coord.MarkSystemWrite(path, utils.RawHash(content))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		coord.ClearSystemWrite(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
