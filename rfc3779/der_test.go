package rfc3779

import (
	"math/big"
	"reflect"
	"testing"

	"github.com/rpki-toolkit/rfc3779/resource"
)

func TestIPAddrBlocksRoundTrip(t *testing.T) {
	blocks := &resource.IPAddrBlocks{}
	if err := blocks.AddPrefix(resource.AFIIPv4, nil, []byte{10, 0, 0, 0}, 24); err != nil {
		t.Fatal(err)
	}
	if err := blocks.AddRange(resource.AFIIPv4, nil, []byte{192, 168, 1, 0}, []byte{192, 168, 1, 255}); err != nil {
		t.Fatal(err)
	}
	if err := blocks.AddInherit(resource.AFIIPv6, nil); err != nil {
		t.Fatal(err)
	}
	if err := blocks.Canonicalize(); err != nil {
		t.Fatal(err)
	}

	der, err := MarshalIPAddrBlocks(blocks)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ParseIPAddrBlocks(der)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got.Families) != len(blocks.Families) {
		t.Fatalf("family count mismatch: got %d want %d", len(got.Families), len(blocks.Families))
	}
	for i, f := range blocks.Families {
		gf := got.Families[i]
		if !gf.Key.Equal(f.Key) {
			t.Errorf("family %d key mismatch: got %+v want %+v", i, gf.Key, f.Key)
		}
		if !reflect.DeepEqual(gf.Choice, f.Choice) {
			t.Errorf("family %d choice mismatch: got %+v want %+v", i, gf.Choice, f.Choice)
		}
	}
}

func TestIPAddrBlocksRoundTripSAFI(t *testing.T) {
	blocks := &resource.IPAddrBlocks{}
	safi := uint8(2)
	if err := blocks.AddPrefix(resource.AFIIPv6, &safi, make([]byte, 16), 0); err != nil {
		t.Fatal(err)
	}
	if err := blocks.Canonicalize(); err != nil {
		t.Fatal(err)
	}

	der, err := MarshalIPAddrBlocks(blocks)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := []byte{0x00, 0x02, 0x02}

	got, err := ParseIPAddrBlocks(der)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Families[0].Key.SAFI == nil || *got.Families[0].Key.SAFI != safi {
		t.Fatalf("safi not round-tripped: %+v", got.Families[0].Key)
	}
	if !reflect.DeepEqual(got.Families[0].Key.Bytes(), want) {
		t.Fatalf("key bytes = %x, want %x", got.Families[0].Key.Bytes(), want)
	}
}

func TestASIdentifiersRoundTrip(t *testing.T) {
	asids := &resource.ASIdentifiers{}
	if err := asids.AsNumChoice().AddID(big.NewInt(64496)); err != nil {
		t.Fatal(err)
	}
	if err := asids.AsNumChoice().AddRange(big.NewInt(64498), big.NewInt(64510)); err != nil {
		t.Fatal(err)
	}
	if err := asids.RDIChoice().AddInherit(); err != nil {
		t.Fatal(err)
	}
	if err := asids.Canonicalize(); err != nil {
		t.Fatal(err)
	}

	der, err := MarshalASIdentifiers(asids)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ParseASIdentifiers(der)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.AsNum == nil || !reflect.DeepEqual(got.AsNum.Elements, asids.AsNum.Elements) {
		t.Fatalf("asnum mismatch: got %+v want %+v", got.AsNum, asids.AsNum)
	}
	if got.RDI == nil || !got.RDI.Inherit {
		t.Fatalf("rdi inherit not round-tripped: %+v", got.RDI)
	}
}

func TestASIdentifiersOmitsAbsentChoice(t *testing.T) {
	asids := &resource.ASIdentifiers{}
	if err := asids.AsNumChoice().AddID(big.NewInt(64500)); err != nil {
		t.Fatal(err)
	}

	der, err := MarshalASIdentifiers(asids)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ParseASIdentifiers(der)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.RDI != nil {
		t.Fatalf("rdi should be absent, got %+v", got.RDI)
	}
}
