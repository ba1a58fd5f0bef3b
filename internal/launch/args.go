package launch

import (
	"strconv"

	"webuictl/pkg/types"
)

// safetyFlags are constant on every invocation, never resolved per candidate.
var safetyFlags = []string{"--skip-version-check", "--skip-install", "--api"}

// BuildArgs translates a candidate into the runtime's argument surface.
func BuildArgs(c types.Candidate, host string, port int) []string {
	args := append([]string{}, safetyFlags...)
	args = append(args, "--host", host, "--port", strconv.Itoa(port))
	switch c.Precision {
	case types.PrecisionFull:
		args = append(args, "--precision", "full", "--no-half", "--no-half-vae")
	case types.PrecisionAutocast:
		args = append(args, "--precision", "autocast", "--no-half-vae")
	case types.PrecisionHalf:
		// the runtime's native default
	}
	switch c.Attention {
	case types.AttentionSubQuadratic:
		args = append(args, "--opt-sub-quad-attention")
	case types.AttentionSplitV1:
		args = append(args, "--opt-split-attention-v1")
	case types.AttentionFused:
		args = append(args, "--xformers")
	case types.AttentionStandard:
	}
	switch c.Memory {
	case types.MemoryMedium:
		args = append(args, "--medvram")
	case types.MemoryLow:
		args = append(args, "--lowvram")
	case types.MemoryNone:
	}
	if c.VAEPath != "" {
		args = append(args, "--vae-path", c.VAEPath)
	}
	return args
}

// BuildEnv derives allocator tuning for the child process. Values are opaque
// pass-through; the resolver does not interpret them.
func BuildEnv(c types.Candidate) []string {
	switch c.Memory {
	case types.MemoryMedium:
		return []string{"PYTORCH_CUDA_ALLOC_CONF=max_split_size_mb:512"}
	case types.MemoryLow:
		return []string{"PYTORCH_CUDA_ALLOC_CONF=max_split_size_mb:128"}
	}
	return nil
}
