package rfc3779

import (
	"math/big"
	"testing"

	"github.com/rpki-toolkit/rfc3779/resource"
)

func asCert(t *testing.T, build func(c *resource.ASIdentifierChoice)) *ResourceCertificate {
	t.Helper()
	a := &resource.ASIdentifiers{}
	build(a.AsNumChoice())
	if err := a.Canonicalize(); err != nil {
		t.Fatal(err)
	}
	return &ResourceCertificate{ASIdentifiers: a}
}

func TestValidateASInheritPropagatesToGrant(t *testing.T) {
	leaf := asCert(t, func(c *resource.ASIdentifierChoice) {
		if err := c.AddInherit(); err != nil {
			t.Fatal(err)
		}
	})
	issuer := asCert(t, func(c *resource.ASIdentifierChoice) {
		if err := c.AddInherit(); err != nil {
			t.Fatal(err)
		}
	})
	root := asCert(t, func(c *resource.ASIdentifierChoice) {
		if err := c.AddRange(big.NewInt(64496), big.NewInt(64510)); err != nil {
			t.Fatal(err)
		}
	})

	chain := []*ResourceCertificate{leaf, issuer, root}
	if err := ValidateAS(chain, nil); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestValidateASRejectsResourcesOutsideIssuerGrant(t *testing.T) {
	leaf := asCert(t, func(c *resource.ASIdentifierChoice) {
		if err := c.AddID(big.NewInt(64600)); err != nil {
			t.Fatal(err)
		}
	})
	root := asCert(t, func(c *resource.ASIdentifierChoice) {
		if err := c.AddRange(big.NewInt(64496), big.NewInt(64510)); err != nil {
			t.Fatal(err)
		}
	})

	chain := []*ResourceCertificate{leaf, root}
	err := ValidateAS(chain, nil)
	if err == nil {
		t.Fatal("expected unnested resource error")
	}
}

func TestValidateASRejectsInheritAtRoot(t *testing.T) {
	leaf := asCert(t, func(c *resource.ASIdentifierChoice) {
		if err := c.AddInherit(); err != nil {
			t.Fatal(err)
		}
	})
	root := asCert(t, func(c *resource.ASIdentifierChoice) {
		if err := c.AddInherit(); err != nil {
			t.Fatal(err)
		}
	})

	chain := []*ResourceCertificate{leaf, root}
	err := ValidateAS(chain, nil)
	if err == nil {
		t.Fatal("expected root-inherit rejection")
	}
}

func TestValidateASCallbackCanContinuePastViolation(t *testing.T) {
	leaf := asCert(t, func(c *resource.ASIdentifierChoice) {
		if err := c.AddID(big.NewInt(64600)); err != nil {
			t.Fatal(err)
		}
	})
	root := asCert(t, func(c *resource.ASIdentifierChoice) {
		if err := c.AddRange(big.NewInt(64496), big.NewInt(64510)); err != nil {
			t.Fatal(err)
		}
	})

	var depths []int
	cb := func(depth int, err error) bool {
		depths = append(depths, depth)
		return true
	}
	chain := []*ResourceCertificate{leaf, root}
	if err := ValidateAS(chain, cb); err != nil {
		t.Fatalf("expected nil error when callback elects to continue, got %v", err)
	}
	if len(depths) != 1 || depths[0] != 1 {
		t.Fatalf("expected single violation reported at depth 1, got %v", depths)
	}
}

func TestValidateASLeafWithNoExtensionSucceeds(t *testing.T) {
	root := asCert(t, func(c *resource.ASIdentifierChoice) {
		if err := c.AddID(big.NewInt(64500)); err != nil {
			t.Fatal(err)
		}
	})
	chain := []*ResourceCertificate{{}, root}
	if err := ValidateAS(chain, nil); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func ipCert(t *testing.T, build func(b *resource.IPAddrBlocks)) *ResourceCertificate {
	t.Helper()
	b := &resource.IPAddrBlocks{}
	build(b)
	if err := b.Canonicalize(); err != nil {
		t.Fatal(err)
	}
	return &ResourceCertificate{IPAddrBlocks: b}
}

func TestValidateIPNestedPrefixSucceeds(t *testing.T) {
	leaf := ipCert(t, func(b *resource.IPAddrBlocks) {
		if err := b.AddPrefix(resource.AFIIPv4, nil, []byte{10, 0, 0, 0}, 24); err != nil {
			t.Fatal(err)
		}
	})
	root := ipCert(t, func(b *resource.IPAddrBlocks) {
		if err := b.AddPrefix(resource.AFIIPv4, nil, []byte{10, 0, 0, 0}, 16); err != nil {
			t.Fatal(err)
		}
	})

	chain := []*ResourceCertificate{leaf, root}
	if err := ValidateIP(chain, resource.AFIIPv4, nil, nil); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestValidateIPRejectsPrefixOutsideIssuerGrant(t *testing.T) {
	leaf := ipCert(t, func(b *resource.IPAddrBlocks) {
		if err := b.AddPrefix(resource.AFIIPv4, nil, []byte{192, 168, 0, 0}, 24); err != nil {
			t.Fatal(err)
		}
	})
	root := ipCert(t, func(b *resource.IPAddrBlocks) {
		if err := b.AddPrefix(resource.AFIIPv4, nil, []byte{10, 0, 0, 0}, 16); err != nil {
			t.Fatal(err)
		}
	})

	chain := []*ResourceCertificate{leaf, root}
	if err := ValidateIP(chain, resource.AFIIPv4, nil, nil); err == nil {
		t.Fatal("expected unnested resource error")
	}
}

func TestValidateIPMissingExtensionWithNonEmptyChildIsUnnested(t *testing.T) {
	leaf := ipCert(t, func(b *resource.IPAddrBlocks) {
		if err := b.AddPrefix(resource.AFIIPv4, nil, []byte{10, 0, 0, 0}, 24); err != nil {
			t.Fatal(err)
		}
	})
	middle := &ResourceCertificate{}
	root := ipCert(t, func(b *resource.IPAddrBlocks) {
		if err := b.AddPrefix(resource.AFIIPv4, nil, []byte{10, 0, 0, 0}, 16); err != nil {
			t.Fatal(err)
		}
	})

	chain := []*ResourceCertificate{leaf, middle, root}
	if err := ValidateIP(chain, resource.AFIIPv4, nil, nil); err == nil {
		t.Fatal("expected unnested resource error at the certificate missing the extension")
	}
}

func TestValidateIPLeafWithNoExtensionSucceeds(t *testing.T) {
	root := ipCert(t, func(b *resource.IPAddrBlocks) {
		if err := b.AddPrefix(resource.AFIIPv4, nil, []byte{10, 0, 0, 0}, 8); err != nil {
			t.Fatal(err)
		}
	})
	chain := []*ResourceCertificate{{}, root}
	if err := ValidateIP(chain, resource.AFIIPv4, nil, nil); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}
