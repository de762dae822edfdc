package ingest

import (
	"path"
	"strconv"
	"strings"

	"github.com/diewo77/go-sales-loader/internal/apperrors"
)

// FilenameContract selects how the platform id is read from an export file name.
type FilenameContract int

const (
	// ContractPrefixed dispatches on the file name prefix:
	// "Order.all" exports carry the platform id in underscore token 2,
	// "Vendas-" exports in token 1. Any other prefix is rejected.
	ContractPrefixed FilenameContract = iota

	// ContractFixedIndex always reads underscore token 2. Used when the upstream
	// bucket guarantees the Order.all naming.
	ContractFixedIndex
)

const (
	prefixOrderAll = "Order.all"
	prefixVendas   = "Vendas-"

	orderAllPlatformToken = 2
	vendasPlatformToken   = 1
	fixedPlatformToken    = 2
)

func (c FilenameContract) String() string {
	switch c {
	case ContractPrefixed:
		return "prefixed"
	case ContractFixedIndex:
		return "fixed_index"
	default:
		return "unknown"
	}
}

// PlatformID extracts the sales platform id from a file name or object key.
// Only the base name is considered.
//
//	Order.all.20250101_20250131_1_20250828_120018_processado.csv -> 1
//	Vendas-de6809a0-d616-40f2-8124-c1b3165b67b9_2_20250828_120021_processado.csv -> 2
func PlatformID(name string, contract FilenameContract) (uint, error) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	parts := strings.Split(base, "_")

	var idx int
	switch contract {
	case ContractFixedIndex:
		idx = fixedPlatformToken
	default:
		switch {
		case strings.HasPrefix(base, prefixOrderAll):
			idx = orderAllPlatformToken
		case strings.HasPrefix(base, prefixVendas):
			idx = vendasPlatformToken
		default:
			return 0, &apperrors.UnrecognizedFilenameError{Name: base, Reason: "expected Order.all or Vendas- prefix"}
		}
	}

	if idx >= len(parts) {
		return 0, &apperrors.UnrecognizedFilenameError{
			Name:   base,
			Reason: "missing platform token " + strconv.Itoa(idx),
		}
	}
	id, err := strconv.ParseUint(parts[idx], 10, 64)
	if err != nil || id == 0 {
		return 0, &apperrors.UnrecognizedFilenameError{
			Name:   base,
			Reason: "platform token " + strconv.Quote(parts[idx]) + " is not a positive integer",
		}
	}
	return uint(id), nil
}
