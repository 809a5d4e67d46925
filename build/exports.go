package build

import (
	"sort"

	"github.com/concordium/concordium-build/artifact"
	cerrors "github.com/concordium/concordium-build/errors"
	"github.com/concordium/concordium-build/fuzzy"
	"github.com/concordium/concordium-build/names"
	"github.com/concordium/concordium-build/wasm"
)

// ValidateExports checks that a validated module's function exports conform
// to the naming contract the chain enforces.
//
// Every function export is classified as an init name, a receive name, or
// neither. V0 modules reject the third class outright; V1 modules permit
// auxiliary exports. Every contract named by a receive export must also be
// declared by an init export; when it is not, the known contract names are
// searched for closest matches and the diagnostic reports them. Entrypoint
// groups are checked in sorted contract-name order.
func ValidateExports(mod *wasm.Module, version artifact.Version) error {
	contracts := map[string]struct{}{}
	methods := map[string]map[string]struct{}{}

	for _, exp := range mod.FuncExports() {
		if in, err := names.ParseInit(exp.Name); err == nil {
			contracts[in.Contract()] = struct{}{}
		} else if rn, err := names.ParseReceive(exp.Name); err == nil {
			eps := methods[rn.Contract()]
			if eps == nil {
				eps = map[string]struct{}{}
				methods[rn.Contract()] = eps
			}
			eps[rn.Entrypoint()] = struct{}{}
		} else if version == artifact.V0 {
			return cerrors.UnexpectedExport(exp.Name)
		}
	}

	known := sortedKeys(contracts)
	for _, cn := range sortedKeys(methods) {
		if _, ok := contracts[cn]; ok {
			continue
		}
		closest, ok := fuzzy.FindClosest(known, cn)
		if !ok {
			// An exact match would have put cn in the contract set.
			continue
		}
		builder := cerrors.New(cerrors.PhaseValidate, cerrors.KindValidationFailed).Export(cn)
		if len(closest) == 0 {
			return builder.
				Detail("an entrypoint is declared for contract '%s', but no contracts exist in the module", cn).
				Build()
		}
		return builder.
			Detail("an entrypoint is declared for contract '%s', but such a contract does not exist in the module", cn).
			Suggest(closest...).
			Build()
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
