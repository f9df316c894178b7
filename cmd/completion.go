package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_seedvault() {
    local cur prev words cword
    _init_completion || return

    local commands="init seal sign address verify item serve status compact keyring help completion"
    local networks="mainnet testnet regtest signet stacks stacks-testnet rsk rsk-testnet ethereum sepolia"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    if [[ "$prev" == "--network" ]]; then
        COMPREPLY=($(compgen -W "$networks" -- "$cur"))
        return
    fi
    if [[ "$prev" == "--vault" || "$prev" == "--out" ]]; then
        _filedir
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        seal)
            COMPREPLY=($(compgen -W "--seed --passphrase --out --force" -- "$cur"))
            ;;
        sign)
            COMPREPLY=($(compgen -W "--path --hash --network --vault --json" -- "$cur"))
            ;;
        address)
            COMPREPLY=($(compgen -W "--vault --json" -- "$cur"))
            ;;
        verify)
            COMPREPLY=($(compgen -W "--network --hash --signature --pubkey" -- "$cur"))
            ;;
        item)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "set get has rm ls" -- "$cur"))
            elif [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--biometric --seconds" -- "$cur"))
            else
                local keys
                keys=$(seedvault item ls 2>/dev/null | sed 's/^ *//')
                COMPREPLY=($(compgen -W "$keys" -- "$cur"))
            fi
            ;;
        serve)
            COMPREPLY=($(compgen -W "--metrics-addr" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "status delete" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _seedvault seedvault
`

const zshCompletion = `#compdef seedvault

_seedvault() {
    local -a commands networks
    commands=(
        'init:Create a seedvault database'
        'seal:Encrypt a seed under a PIN'
        'sign:Sign a 32-byte digest'
        'address:Show default account addresses'
        'verify:Check a signature'
        'item:Manage stored items'
        'serve:Run the JSON line bridge on stdin/stdout'
        'status:Show database status'
        'compact:Compact the database'
        'keyring:Manage platform keys in the OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )
    networks=(mainnet testnet regtest signet stacks stacks-testnet rsk rsk-testnet ethereum sepolia)

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'seedvault commands' commands
            ;;
        args)
            case "${words[2]}" in
                seal)
                    _arguments \
                        '--seed[Raw seed in hex]:seed' \
                        '--passphrase[BIP39 passphrase]:passphrase' \
                        '--out[Write envelope to file]:file:_files' \
                        '--force[Replace the sealed vault]'
                    ;;
                sign)
                    _arguments \
                        '--path[Derivation path]:path' \
                        '--hash[Digest in hex]:hash' \
                        "--network[Network]:network:(${networks})" \
                        '--vault[Envelope file]:file:_files' \
                        '--json[Print JSON]'
                    ;;
                address)
                    _arguments \
                        '--vault[Envelope file]:file:_files' \
                        '--json[Print JSON]'
                    ;;
                verify)
                    _arguments \
                        "--network[Network]:network:(${networks})" \
                        '--hash[Digest in hex]:hash' \
                        '--signature[Signature in hex]:signature' \
                        '--pubkey[Public key in hex]:pubkey'
                    ;;
                item)
                    _arguments \
                        '1:action:(set get has rm ls)' \
                        '--biometric[Authenticate and gate the item]' \
                        '--seconds[Authentication window]:seconds' \
                        '*:key:_seedvault_items'
                    ;;
                serve)
                    _arguments '--metrics-addr[Serve metrics on address]:addr'
                    ;;
                keyring)
                    _values 'subcommand' status delete
                    ;;
                help)
                    _describe -t commands 'seedvault commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_seedvault_items() {
    local -a keys
    keys=(${(f)"$(seedvault item ls 2>/dev/null | sed 's/^ *//')"})
    _describe -t keys 'items' keys
}

_seedvault "$@"
`

const fishCompletion = `# seedvault fish completions

set -l commands init seal sign address verify item serve status compact keyring help completion
set -l networks mainnet testnet regtest signet stacks stacks-testnet rsk rsk-testnet ethereum sepolia

complete -c seedvault -f

# Commands
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a seedvault database'
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a seal -d 'Encrypt a seed under a PIN'
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a sign -d 'Sign a digest'
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a address -d 'Show addresses'
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a verify -d 'Check a signature'
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a item -d 'Manage stored items'
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a serve -d 'Run the JSON line bridge'
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show database status'
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact the database'
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage keys in OS keyring'
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c seedvault -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# seal
complete -c seedvault -n "__fish_seen_subcommand_from seal" -l seed -r -d 'Raw seed in hex'
complete -c seedvault -n "__fish_seen_subcommand_from seal" -l passphrase -r -d 'BIP39 passphrase'
complete -c seedvault -n "__fish_seen_subcommand_from seal" -l out -r -F -d 'Write envelope to file'
complete -c seedvault -n "__fish_seen_subcommand_from seal" -l force -d 'Replace the sealed vault'

# sign, address, verify
complete -c seedvault -n "__fish_seen_subcommand_from sign" -l path -r -d 'Derivation path'
complete -c seedvault -n "__fish_seen_subcommand_from sign verify" -l hash -r -d 'Digest in hex'
complete -c seedvault -n "__fish_seen_subcommand_from sign verify" -l network -x -a "$networks" -d 'Network'
complete -c seedvault -n "__fish_seen_subcommand_from sign address" -l vault -r -F -d 'Envelope file'
complete -c seedvault -n "__fish_seen_subcommand_from sign address" -l json -d 'Print JSON'
complete -c seedvault -n "__fish_seen_subcommand_from verify" -l signature -r -d 'Signature in hex'
complete -c seedvault -n "__fish_seen_subcommand_from verify" -l pubkey -r -d 'Public key in hex'

# item
complete -c seedvault -n "__fish_seen_subcommand_from item" -a "set get has rm ls"
complete -c seedvault -n "__fish_seen_subcommand_from item" -l biometric -d 'Authenticate and gate the item'
complete -c seedvault -n "__fish_seen_subcommand_from item" -l seconds -r -d 'Authentication window'

# serve
complete -c seedvault -n "__fish_seen_subcommand_from serve" -l metrics-addr -r -d 'Serve metrics on address'

# keyring subcommands
complete -c seedvault -n "__fish_seen_subcommand_from keyring" -a "status delete"

# help completions
complete -c seedvault -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c seedvault -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
