package build

import (
	"github.com/concordium/concordium-build/artifact"
	"github.com/concordium/concordium-build/wasm"
)

// hostModule is the import module name contracts resolve host functions
// from.
const hostModule = "concordium"

// v0ImportNames lists the host functions a V0 contract may import.
var v0ImportNames = []string{
	"accept",
	"simple_transfer",
	"send",
	"combine_and",
	"combine_or",
	"get_parameter_size",
	"get_parameter_section",
	"get_policy_section",
	"log_event",
	"load_state",
	"write_state",
	"resize_state",
	"state_size",
	"get_init_origin",
	"get_receive_invoker",
	"get_receive_self_address",
	"get_receive_self_balance",
	"get_receive_sender",
	"get_receive_owner",
	"get_slot_time",
}

// v1ImportNames lists the host functions a V1 contract may import,
// including the in-place upgrade entry point.
var v1ImportNames = []string{
	"invoke",
	"write_output",
	"get_parameter_size",
	"get_parameter_section",
	"get_policy_section",
	"log_event",
	"get_init_origin",
	"get_receive_invoker",
	"get_receive_self_address",
	"get_receive_self_balance",
	"get_receive_sender",
	"get_receive_owner",
	"get_receive_entrypoint_size",
	"get_receive_entrypoint",
	"get_slot_time",
	"state_lookup_entry",
	"state_create_entry",
	"state_delete_entry",
	"state_delete_prefix",
	"state_iterate_prefix",
	"state_iterator_next",
	"state_iterator_delete",
	"state_iterator_key_size",
	"state_iterator_key_read",
	"state_entry_read",
	"state_entry_write",
	"state_entry_size",
	"state_entry_resize",
	"verify_ed25519_signature",
	"verify_ecdsa_secp256k1_signature",
	"hash_sha2_256",
	"hash_sha3_256",
	"hash_keccak_256",
	"upgrade",
}

// allowedImports returns the import set fixed by the module format version.
func allowedImports(v artifact.Version) wasm.AllowedImports {
	names := v1ImportNames
	if v == artifact.V0 {
		names = v0ImportNames
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return wasm.AllowedImports{HostModule: hostModule, Names: set}
}
