package tune

import (
	"context"

	"github.com/lakshaymaurya-felt/macmole/internal/runner"
)

// nativeSysctl is replaced in tests so the host kernel is never consulted.
var nativeSysctl = readSysctlNative

// ReadSysctl returns the current value of key. The kernel is queried
// directly where supported; otherwise `sysctl -n` is run.
func ReadSysctl(ctx context.Context, r runner.Runner, key string) (string, error) {
	if v, ok := nativeSysctl(key); ok {
		return v, nil
	}
	return runner.Output(ctx, r, "sysctl", "-n", key)
}

// ReadSysctls reads every key, omitting keys that cannot be read.
func ReadSysctls(ctx context.Context, r runner.Runner, keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := ReadSysctl(ctx, r, k)
		if err != nil || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
