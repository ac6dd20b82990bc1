package ktune

import "testing"

// AddArgumentOrFail adds an argument and fails the test if unsuccessful.
func AddArgumentOrFail(t testing.TB, store *ArgumentStore, kind ArgumentKind, count int, access AccessMode, locality MemoryLocality, upload UploadKind, data []byte, owned bool) ArgumentId {
	t.Helper()
	id, err := store.AddArgument(kind, count, access, locality, upload, data, owned)
	if err != nil {
		t.Fatalf("AddArgument failed: %v", err)
	}
	return id
}

// RunKernelOrFail tunes kernelId and fails the test if the run itself
// errors (a failed or invalid TuningResult is not itself a test failure —
// callers should inspect the returned results for that).
func RunKernelOrFail(t testing.TB, tr *TuningRunner, kernelId KernelId) []TuningResult {
	t.Helper()
	results, err := tr.TuneKernel(kernelId)
	if err != nil {
		t.Fatalf("TuneKernel failed: %v", err)
	}
	return results
}

// RequireValid fails the test unless every result in results is Valid.
func RequireValid(t testing.TB, results []TuningResult) {
	t.Helper()
	for _, r := range results {
		if r.Status != StatusValid {
			t.Fatalf("expected valid result for %q at %s, got %s: %s", r.KernelName, formatConfiguration(r.Configuration), r.Status, r.ErrorMessage)
		}
	}
}
