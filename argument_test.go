package ktune

import "testing"

func TestArgumentKindElementSize(t *testing.T) {
	cases := map[ArgumentKind]int{
		ArgInt8: 1, ArgUint8: 1,
		ArgInt16: 2, ArgUint16: 2, ArgHalf: 2,
		ArgInt32: 4, ArgUint32: 4, ArgFloat: 4,
		ArgInt64: 8, ArgUint64: 8, ArgDouble: 8,
	}
	for kind, want := range cases {
		if got := kind.ElementSize(); got != want {
			t.Errorf("%v.ElementSize() = %d, want %d", kind, got, want)
		}
	}
}

func TestAddArgumentRejectsNonPositiveCount(t *testing.T) {
	store := NewArgumentStore()
	if _, err := store.AddArgument(ArgFloat, 0, AccessReadOnly, LocalityDevice, UploadVector, nil, true); err == nil {
		t.Fatal("expected an error for a zero element count")
	}
}

func TestAddArgumentRejectsMismatchedDataLength(t *testing.T) {
	store := NewArgumentStore()
	if _, err := store.AddArgument(ArgFloat, 4, AccessReadOnly, LocalityDevice, UploadVector, make([]byte, 8), true); err == nil {
		t.Fatal("expected an error when data length does not match count*ElementSize()")
	}
}

func TestAddArgumentOwnedCopiesData(t *testing.T) {
	store := NewArgumentStore()
	data := make([]byte, 16)
	data[0] = 0xAA
	id, err := store.AddArgument(ArgFloat, 4, AccessReadWrite, LocalityDevice, UploadVector, data, true)
	if err != nil {
		t.Fatalf("AddArgument: %v", err)
	}
	data[0] = 0x00
	arg, err := store.GetArgument(id)
	if err != nil {
		t.Fatalf("GetArgument: %v", err)
	}
	if !arg.Owned() {
		t.Fatal("expected an owned argument to report Owned() == true")
	}
	if arg.Bytes()[0] != 0xAA {
		t.Fatal("expected an owned argument's data to be an independent copy, unaffected by later mutation of the caller's slice")
	}
}

func TestAddArgumentReferencedSharesUnderlyingData(t *testing.T) {
	store := NewArgumentStore()
	data := make([]byte, 16)
	id, err := store.AddArgument(ArgFloat, 4, AccessReadWrite, LocalityDevice, UploadVector, data, false)
	if err != nil {
		t.Fatalf("AddArgument: %v", err)
	}
	data[0] = 0xAA
	arg, err := store.GetArgument(id)
	if err != nil {
		t.Fatalf("GetArgument: %v", err)
	}
	if arg.Owned() {
		t.Fatal("expected a referenced argument to report Owned() == false")
	}
	if arg.Bytes()[0] != 0xAA {
		t.Fatal("expected a referenced argument to see mutations to the caller's backing slice")
	}
}

func TestAddArgumentReferencedRequiresNonNilData(t *testing.T) {
	store := NewArgumentStore()
	if _, err := store.AddArgument(ArgFloat, 4, AccessReadWrite, LocalityDevice, UploadVector, nil, false); err == nil {
		t.Fatal("expected an error when a non-owning argument is registered with nil data")
	}
}

func TestArgumentSizeBytesAndTypedViews(t *testing.T) {
	store := NewArgumentStore()
	id, err := store.AddArgument(ArgInt32, 3, AccessReadOnly, LocalityDevice, UploadVector, make([]byte, 12), true)
	if err != nil {
		t.Fatalf("AddArgument: %v", err)
	}
	arg, _ := store.GetArgument(id)
	if got, want := arg.SizeBytes(), 12; got != want {
		t.Fatalf("SizeBytes() = %d, want %d", got, want)
	}
	if got, want := len(arg.Int32()), 3; got != want {
		t.Fatalf("len(Int32()) = %d, want %d", got, want)
	}
}

func TestGetArgumentUnknownId(t *testing.T) {
	store := NewArgumentStore()
	if _, err := store.GetArgument(999); err == nil {
		t.Fatal("expected an error for an unregistered argument id")
	}
}

func TestGetArgumentsStopsAtFirstUnknownId(t *testing.T) {
	store := NewArgumentStore()
	id, err := store.AddArgument(ArgFloat, 1, AccessReadOnly, LocalityDevice, UploadVector, make([]byte, 4), true)
	if err != nil {
		t.Fatalf("AddArgument: %v", err)
	}
	if _, err := store.GetArguments([]ArgumentId{id, 999}); err == nil {
		t.Fatal("expected GetArguments to fail when any id in the list is unknown")
	}
}

func TestUpdateArgumentOwnedReplacesContentsAndCount(t *testing.T) {
	store := NewArgumentStore()
	id, err := store.AddArgument(ArgFloat, 2, AccessReadWrite, LocalityDevice, UploadVector, make([]byte, 8), true)
	if err != nil {
		t.Fatalf("AddArgument: %v", err)
	}
	if err := store.UpdateArgument(id, make([]byte, 16), 4); err != nil {
		t.Fatalf("UpdateArgument: %v", err)
	}
	arg, _ := store.GetArgument(id)
	if arg.Count() != 4 {
		t.Fatalf("Count() after update = %d, want 4", arg.Count())
	}
	if len(arg.Bytes()) != 16 {
		t.Fatalf("len(Bytes()) after update = %d, want 16", len(arg.Bytes()))
	}
}

func TestUpdateArgumentRejectsMismatchedLength(t *testing.T) {
	store := NewArgumentStore()
	id, err := store.AddArgument(ArgFloat, 2, AccessReadWrite, LocalityDevice, UploadVector, make([]byte, 8), true)
	if err != nil {
		t.Fatalf("AddArgument: %v", err)
	}
	if err := store.UpdateArgument(id, make([]byte, 5), 2); err == nil {
		t.Fatal("expected an error when the update data length does not match count*ElementSize()")
	}
}

func TestUpdateArgumentUnknownId(t *testing.T) {
	store := NewArgumentStore()
	if err := store.UpdateArgument(999, make([]byte, 4), 1); err == nil {
		t.Fatal("expected an error for an unregistered argument id")
	}
}
