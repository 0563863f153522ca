package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"safepool/config"
	"safepool/core/types"
	"safepool/crypto"
	"safepool/native/escrow"
	"safepool/native/pool"
)

const usage = `poolctl - offline helper for pool and escrow operations

Usage:
  poolctl generate-key
  poolctl show-address -key <hex>
  poolctl secret-hash -secret <text>
  poolctl sign-accept -key <hex> -recipient <addr> -value <amount> -secret-hash <hash> [domain flags] [-mode typed|personal]
  poolctl sign-payment -key <hex> -value <amount> -nonce <hex> [domain flags] [-mode typed|personal]
  poolctl sign-hidden-collect -key <hex> -to <addr> -value <amount> -fees <amount> -secret-hash <hash> [domain flags] [-mode typed|personal]
  poolctl request-id -from <addr> -to <addr> -value <amount> -fees <amount> -secret-hash <hash>
  poolctl hidden-commitment -from <addr> -to <addr> -value <amount> -fees <amount> -secret-hash <hash>
  poolctl call -addr <url> -method <name> [-params <json>]

Domain flags: -chain-id, -domain-name, -domain-version, -pool <addr>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "generate-key":
		err = generateKey()
	case "show-address":
		err = showAddress(os.Args[2:])
	case "secret-hash":
		err = secretHash(os.Args[2:])
	case "sign-accept":
		err = signAccept(os.Args[2:])
	case "sign-payment":
		err = signPayment(os.Args[2:])
	case "sign-hidden-collect":
		err = signHiddenCollect(os.Args[2:])
	case "request-id":
		err = requestID(os.Args[2:])
	case "hidden-commitment":
		err = hiddenCommitment(os.Args[2:])
	case "call":
		err = callRPC(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func domainFlags(fs *flag.FlagSet) (chainID *uint64, name, version, poolAddr *string) {
	chainID = fs.Uint64("chain-id", 1, "Typed-data chain id")
	name = fs.String("domain-name", "safepool", "Typed-data domain name")
	version = fs.String("domain-version", "1", "Typed-data domain version")
	poolAddr = fs.String("pool", "", "Pool custody address (hex)")
	return
}

func buildDomain(chainID uint64, name, version, poolHex string) (crypto.TypedDomain, error) {
	domain := crypto.TypedDomain{Name: name, Version: version, ChainID: chainID}
	if strings.TrimSpace(poolHex) != "" {
		addr, err := config.ParseAddress(poolHex)
		if err != nil {
			return domain, fmt.Errorf("pool address: %w", err)
		}
		domain.VerifyingContract = addr
	}
	return domain, nil
}

func parseHash(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("hash must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func parseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func loadKey(hexKey string) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(hexKey) == "" {
		return nil, fmt.Errorf("-key is required")
	}
	return crypto.PrivateKeyFromHex(hexKey)
}

func generateKey() error {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	addr := key.PubKey().Address()
	fmt.Printf("Private key: %x\n", key.Bytes())
	fmt.Printf("Address:     %s\n", addr.String())
	fmt.Printf("Hex:         0x%x\n", addr.Raw())
	return nil
}

func showAddress(args []string) error {
	fs := flag.NewFlagSet("show-address", flag.ExitOnError)
	keyHex := fs.String("key", "", "Private key hex")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}
	addr := key.PubKey().Address()
	fmt.Printf("Address: %s\n", addr.String())
	fmt.Printf("Hex:     0x%x\n", addr.Raw())
	return nil
}

func secretHash(args []string) error {
	fs := flag.NewFlagSet("secret-hash", flag.ExitOnError)
	secret := fs.String("secret", "", "Secret text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		return fmt.Errorf("-secret is required")
	}
	fmt.Printf("Secret hex:  %x\n", []byte(*secret))
	fmt.Printf("Secret hash: 0x%x\n", ethcrypto.Keccak256([]byte(*secret)))
	return nil
}

func parseMode(s string) (crypto.SignatureMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "personal":
		return crypto.SignatureModePersonal, nil
	case "typed", "typeddata", "eip712":
		return crypto.SignatureModeTypedData, nil
	}
	return 0, fmt.Errorf("unknown signature mode %q", s)
}

func signAccept(args []string) error {
	fs := flag.NewFlagSet("sign-accept", flag.ExitOnError)
	keyHex := fs.String("key", "", "Private key hex")
	recipientHex := fs.String("recipient", "", "Recipient address (defaults to the key's address)")
	valueStr := fs.String("value", "", "Token amount")
	hashHex := fs.String("secret-hash", "", "Issuance secret hash")
	modeStr := fs.String("mode", "personal", "Signature mode")
	chainID, name, version, poolHex := domainFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}
	recipient := key.PubKey().Address().Raw()
	if strings.TrimSpace(*recipientHex) != "" {
		if recipient, err = config.ParseAddress(*recipientHex); err != nil {
			return fmt.Errorf("recipient: %w", err)
		}
	}
	value, err := parseAmount(*valueStr)
	if err != nil {
		return err
	}
	hash, err := parseHash(*hashHex)
	if err != nil {
		return fmt.Errorf("secret-hash: %w", err)
	}
	mode, err := parseMode(*modeStr)
	if err != nil {
		return err
	}
	domain, err := buildDomain(*chainID, *name, *version, *poolHex)
	if err != nil {
		return err
	}

	var digest [32]byte
	if mode == crypto.SignatureModeTypedData {
		digest = pool.AcceptTokensTypedDigest(domain, recipient, value, hash)
	} else {
		message := pool.AcceptTokensMessage(domain.Separator(), recipient, value, hash)
		if digest, err = crypto.Digest(mode, message); err != nil {
			return err
		}
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return err
	}
	fmt.Printf("Signature: 0x%x\n", sig)
	return nil
}

func signPayment(args []string) error {
	fs := flag.NewFlagSet("sign-payment", flag.ExitOnError)
	keyHex := fs.String("key", "", "Private key hex")
	valueStr := fs.String("value", "", "Token amount")
	nonceHex := fs.String("nonce", "", "Account nonce hex, from pool_account")
	modeStr := fs.String("mode", "personal", "Signature mode")
	chainID, name, version, poolHex := domainFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}
	from := key.PubKey().Address().Raw()
	value, err := parseAmount(*valueStr)
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(*nonceHex), "0x"))
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	var nonce types.Nonce
	if len(raw) != len(nonce) {
		return fmt.Errorf("nonce must be %d bytes, got %d", len(nonce), len(raw))
	}
	copy(nonce[:], raw)
	mode, err := parseMode(*modeStr)
	if err != nil {
		return err
	}
	domain, err := buildDomain(*chainID, *name, *version, *poolHex)
	if err != nil {
		return err
	}

	var digest [32]byte
	if mode == crypto.SignatureModeTypedData {
		digest = pool.PaymentTypedDigest(domain, from, value, nonce)
	} else {
		message := pool.PaymentMessage(domain.Separator(), from, value, nonce)
		if digest, err = crypto.Digest(mode, message); err != nil {
			return err
		}
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return err
	}
	fmt.Printf("Signature: 0x%x\n", sig)
	return nil
}

func signHiddenCollect(args []string) error {
	fs := flag.NewFlagSet("sign-hidden-collect", flag.ExitOnError)
	keyHex := fs.String("key", "", "Private key hex")
	toHex := fs.String("to", "", "Recipient address")
	valueStr := fs.String("value", "", "Native amount")
	feesStr := fs.String("fees", "", "Native fees")
	hashHex := fs.String("secret-hash", "", "Secret hash")
	modeStr := fs.String("mode", "personal", "Signature mode")
	chainID, name, version, poolHex := domainFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}
	from := key.PubKey().Address().Raw()
	to, err := config.ParseAddress(*toHex)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}
	value, err := parseAmount(*valueStr)
	if err != nil {
		return err
	}
	fees, err := parseAmount(*feesStr)
	if err != nil {
		return err
	}
	hash, err := parseHash(*hashHex)
	if err != nil {
		return fmt.Errorf("secret-hash: %w", err)
	}
	mode, err := parseMode(*modeStr)
	if err != nil {
		return err
	}
	domain, err := buildDomain(*chainID, *name, *version, *poolHex)
	if err != nil {
		return err
	}

	var digest [32]byte
	if mode == crypto.SignatureModeTypedData {
		digest = escrow.HiddenCollectTypedDigest(domain, from, to, value, fees, hash)
	} else {
		message := escrow.HiddenCollectMessage(domain.Separator(), from, to, value, fees, hash)
		if digest, err = crypto.Digest(mode, message); err != nil {
			return err
		}
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return err
	}
	fmt.Printf("Signature: 0x%x\n", sig)
	return nil
}

func transferFlags(fs *flag.FlagSet) (from, to, value, fees, hash *string) {
	from = fs.String("from", "", "Depositor address")
	to = fs.String("to", "", "Recipient address")
	value = fs.String("value", "", "Native amount")
	fees = fs.String("fees", "", "Native fees")
	hash = fs.String("secret-hash", "", "Secret hash")
	return
}

func parseTransfer(fromHex, toHex, valueStr, feesStr, hashHex string) (from, to [20]byte, leg *escrow.Leg, hash [32]byte, err error) {
	if from, err = config.ParseAddress(fromHex); err != nil {
		err = fmt.Errorf("from: %w", err)
		return
	}
	if to, err = config.ParseAddress(toHex); err != nil {
		err = fmt.Errorf("to: %w", err)
		return
	}
	value, err := parseAmount(valueStr)
	if err != nil {
		return
	}
	fees, err := parseAmount(feesStr)
	if err != nil {
		return
	}
	if hash, err = parseHash(hashHex); err != nil {
		err = fmt.Errorf("secret-hash: %w", err)
		return
	}
	leg = escrow.NativeLeg(value, fees)
	return
}

func requestID(args []string) error {
	fs := flag.NewFlagSet("request-id", flag.ExitOnError)
	fromHex, toHex, valueStr, feesStr, hashHex := transferFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	from, to, leg, hash, err := parseTransfer(*fromHex, *toHex, *valueStr, *feesStr, *hashHex)
	if err != nil {
		return err
	}
	id := escrow.RequestID(escrow.KindTransfer, from, to, leg, nil, hash, nil)
	fmt.Printf("Request id: 0x%x\n", id)
	return nil
}

func hiddenCommitment(args []string) error {
	fs := flag.NewFlagSet("hidden-commitment", flag.ExitOnError)
	fromHex, toHex, valueStr, feesStr, hashHex := transferFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	from, to, leg, hash, err := parseTransfer(*fromHex, *toHex, *valueStr, *feesStr, *hashHex)
	if err != nil {
		return err
	}
	commitment := escrow.HiddenCommitment(from, to, leg, hash)
	fmt.Printf("Commitment:     0x%x\n", commitment)
	fmt.Printf("Deposit value:  %s\n", new(big.Int).Add(leg.Value, leg.Fees).String())
	return nil
}

func callRPC(args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Node RPC address")
	method := fs.String("method", "", "JSON-RPC method name")
	params := fs.String("params", "", "JSON-encoded params object")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*method) == "" {
		return fmt.Errorf("-method is required")
	}

	request := map[string]any{"jsonrpc": "2.0", "id": 1, "method": *method}
	if strings.TrimSpace(*params) != "" {
		var decoded any
		if err := json.Unmarshal([]byte(*params), &decoded); err != nil {
			return fmt.Errorf("params: %w", err)
		}
		request["params"] = decoded
	}
	body, err := json.Marshal(request)
	if err != nil {
		return err
	}

	resp, err := http.Post(*addr, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var pretty bytes.Buffer
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
