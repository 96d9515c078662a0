// Command tk is a CLI client for the TOTP keeper service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	pb "github.com/and161185/totp-keeper/api/totpkeeper/v1"
	"github.com/and161185/totp-keeper/internal/convert"
	"github.com/and161185/totp-keeper/internal/otp"
	"github.com/and161185/totp-keeper/internal/qrcode"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "totp-keeper")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "totp-keeper")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

// ---- grpc dial ----

type bearerCreds struct{ token string }

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return true }

func loadTLS(caPath string, insecure bool) (credentials.TransportCredentials, error) {
	if insecure {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

func dial(addr, caPath string, insecure bool, bearer string) (*grpc.ClientConn, pb.TOTPKeeperClient, error) {
	creds, err := loadTLS(caPath, insecure)
	if err != nil {
		return nil, nil, err
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer}))
	}
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cc, pb.NewTOTPKeeperClient(cc), nil
}

// ---- utils ----

// readSecret returns v, or stdin when v is "-", so secrets stay out of shell history.
func readSecret(v string) (string, error) {
	if v != "-" {
		return v, nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func must[T any](v T, err error) T {
	if err != nil {
		fail(err)
	}
	return v
}

func usage() {
	fmt.Fprintf(os.Stderr, `tk CLI
Usage:
  tk -addr HOST:PORT [-cacert file | -insecure] <cmd> [args]

Commands:
  version
  register   -u <username> -p <password>
  login      -u <username> -p <password> [-code <totp>]   (saves token)
  qrcode     [-png <file>]                                (new secret, nothing stored)
  verify     -secret <base32|-> -code <totp>
  enable     -secret <base32|->
  code       -secret <base32|->                           (offline, current code)
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	// global flags
	addr := flag.String("addr", "localhost:8443", "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// authed dials with the saved token
	authed := func() (*grpc.ClientConn, pb.TOTPKeeperClient) {
		token := must(loadToken())
		cc, cli, err := dial(*addr, *caPath, *insecure, token)
		if err != nil {
			fail(err)
		}
		return cc, cli
	}

	switch cmd {

	case "version":
		fmt.Printf("tk %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *u == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u and -p")
			os.Exit(1)
		}

		cc, cli, err := dial(*addr, *caPath, *insecure, "")
		if err != nil {
			fail(err)
		}
		defer cc.Close()

		out := must(cli.Register(ctx, must(convert.ToStruct(pb.RegisterRequest{Username: *u, Password: *p}))))
		var resp pb.RegisterResponse
		if err := convert.FromStruct(out, &resp); err != nil {
			fail(err)
		}
		fmt.Println(resp.UserID)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		code := fs.String("code", "", "TOTP code (when enabled)")
		_ = fs.Parse(args)
		if *u == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u and -p")
			os.Exit(1)
		}

		cc, cli, err := dial(*addr, *caPath, *insecure, "")
		if err != nil {
			fail(err)
		}
		defer cc.Close()

		req := pb.LoginRequest{Username: *u, Password: *p, TOTPCode: *code}
		out := must(cli.Login(ctx, must(convert.ToStruct(req))))
		var resp pb.LoginResponse
		if err := convert.FromStruct(out, &resp); err != nil {
			fail(err)
		}
		if err := saveToken(resp.AccessToken, tokenExpiry(resp.ExpiresAt)); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "qrcode":
		fs := flag.NewFlagSet("qrcode", flag.ExitOnError)
		pngPath := fs.String("png", "", "write the QR code PNG to this file")
		_ = fs.Parse(args)

		cc, cli := authed()
		defer cc.Close()

		out := must(cli.GetQRCode(ctx, &emptypb.Empty{}))
		var resp pb.QRCodeResponse
		if err := convert.FromStruct(out, &resp); err != nil {
			fail(err)
		}
		if *pngPath != "" {
			png := must(qrcode.PNG(resp.OTPAuthURI, qrcode.DefaultSize))
			if err := os.WriteFile(*pngPath, png, 0o600); err != nil {
				fail(err)
			}
		}
		printJSON(map[string]string{"secret": resp.Secret, "otpauth_uri": resp.OTPAuthURI})

	case "verify":
		fs := flag.NewFlagSet("verify", flag.ExitOnError)
		secret := fs.String("secret", "", "base32 secret ('-'=stdin)")
		code := fs.String("code", "", "TOTP code")
		_ = fs.Parse(args)
		if *secret == "" || *code == "" {
			fmt.Fprintln(os.Stderr, "need -secret and -code")
			os.Exit(1)
		}

		cc, cli := authed()
		defer cc.Close()

		req := pb.VerifyTOTPRequest{TOTPToken: *code, TOTPSecret: must(readSecret(*secret))}
		_ = must(cli.VerifyTOTP(ctx, must(convert.ToStruct(req))))
		fmt.Println("ok")

	case "enable":
		fs := flag.NewFlagSet("enable", flag.ExitOnError)
		secret := fs.String("secret", "", "base32 secret ('-'=stdin)")
		_ = fs.Parse(args)
		if *secret == "" {
			fmt.Fprintln(os.Stderr, "need -secret")
			os.Exit(1)
		}

		cc, cli := authed()
		defer cc.Close()

		req := pb.EnableTOTPRequest{TOTPSecret: must(readSecret(*secret))}
		_ = must(cli.EnableTOTP(ctx, must(convert.ToStruct(req))))
		fmt.Println("totp enabled")

	case "code":
		fs := flag.NewFlagSet("code", flag.ExitOnError)
		secret := fs.String("secret", "", "base32 secret ('-'=stdin)")
		_ = fs.Parse(args)
		if *secret == "" {
			fmt.Fprintln(os.Stderr, "need -secret")
			os.Exit(1)
		}
		fmt.Println(must(currentCode(must(readSecret(*secret)), time.Now())))

	default:
		usage()
	}
}

// ---- helpers ----

func currentCode(secret string, at time.Time) (string, error) {
	if err := otp.CheckSecret(secret); err != nil {
		return "", err
	}
	return otp.NewVerifier(0).GenerateCode(secret, at)
}

// tokenExpiry parses the server's RFC 3339 expiry, falling back to 15 minutes.
func tokenExpiry(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now().Add(15 * time.Minute)
}

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
