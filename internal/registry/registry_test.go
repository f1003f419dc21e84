package registry

import (
	"context"
	"errors"
	"testing"
)

const (
	collection = "0xcccccccccccccccccccccccccccccccccccccccc"
	alice      = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bob        = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	market     = "0x00000000000000000000000000000000004e4654"
)

func TestMintAndOwnerOf(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()

	if err := reg.Mint(ctx, collection, "1", alice); err != nil {
		t.Fatalf("mint: %v", err)
	}

	owner, err := reg.OwnerOf(ctx, collection, "1")
	if err != nil {
		t.Fatalf("owner of: %v", err)
	}
	if owner != alice {
		t.Errorf("expected owner=%s, got %s", alice, owner)
	}
}

func TestMint_Duplicate(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()

	reg.Mint(ctx, collection, "1", alice)
	if err := reg.Mint(ctx, collection, "1", bob); !errors.Is(err, ErrAssetExists) {
		t.Errorf("expected ErrAssetExists, got %v", err)
	}
}

func TestOwnerOf_Unknown(t *testing.T) {
	reg := NewMemory()

	if _, err := reg.OwnerOf(context.Background(), collection, "404"); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestApprove(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()
	reg.Mint(ctx, collection, "1", alice)

	if err := reg.Approve(ctx, collection, "1", alice, market); err != nil {
		t.Fatalf("approve: %v", err)
	}

	agent, err := reg.ApprovedAgent(ctx, collection, "1")
	if err != nil {
		t.Fatalf("approved agent: %v", err)
	}
	if agent != market {
		t.Errorf("expected agent=%s, got %s", market, agent)
	}
}

func TestApprove_NotOwner(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()
	reg.Mint(ctx, collection, "1", alice)

	if err := reg.Approve(ctx, collection, "1", bob, market); !errors.Is(err, ErrNotCurrentOwner) {
		t.Errorf("expected ErrNotCurrentOwner, got %v", err)
	}
}

func TestApprovedAgent_NoneGranted(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()
	reg.Mint(ctx, collection, "1", alice)

	agent, err := reg.ApprovedAgent(ctx, collection, "1")
	if err != nil {
		t.Fatalf("approved agent: %v", err)
	}
	if agent != "" {
		t.Errorf("expected empty agent, got %s", agent)
	}
}

func TestTransfer(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()
	reg.Mint(ctx, collection, "1", alice)
	reg.Approve(ctx, collection, "1", alice, market)

	if err := reg.Transfer(ctx, collection, "1", alice, bob); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	owner, _ := reg.OwnerOf(ctx, collection, "1")
	if owner != bob {
		t.Errorf("expected owner=%s, got %s", bob, owner)
	}

	// Approvals do not survive a transfer.
	agent, _ := reg.ApprovedAgent(ctx, collection, "1")
	if agent != "" {
		t.Errorf("approval should be cleared on transfer, got %s", agent)
	}
}

func TestTransfer_FromNonOwner(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()
	reg.Mint(ctx, collection, "1", alice)

	if err := reg.Transfer(ctx, collection, "1", bob, market); !errors.Is(err, ErrNotCurrentOwner) {
		t.Errorf("expected ErrNotCurrentOwner, got %v", err)
	}

	owner, _ := reg.OwnerOf(ctx, collection, "1")
	if owner != alice {
		t.Errorf("ownership must be unchanged, got %s", owner)
	}
}
