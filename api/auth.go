package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xraph/bftrelay/scope"
	"github.com/xraph/bftrelay/signature"
)

// AuthHeader carries "<unix-seconds>.<0x-signature>" for owner-gated routes.
const AuthHeader = "X-Relay-Auth"

var (
	errMissingAuth = errors.New("missing " + AuthHeader + " header")
	errMalformed   = errors.New("malformed " + AuthHeader + " header")
	errStale       = errors.New("auth timestamp outside accepted window")
	errReplayed    = errors.New("auth header already used")
)

// AuthDomain names the relay deployment an admin signature is valid for.
// Owner is the relay owner. Realm separates deployments that share an owner,
// the extension uses its base path.
type AuthDomain struct {
	Owner common.Address
	Realm string
}

// AuthMessage is the hash an owner signs to authorize an admin request:
// keccak256(owner || realm || "\n" || method || " " || path || "\n" || ts || "\n" || body).
// The signature is over its EIP-191 digest, as for relay requests.
func AuthMessage(d AuthDomain, method, path string, ts int64, body []byte) common.Hash {
	var buf bytes.Buffer
	buf.Write(d.Owner.Bytes())
	buf.WriteString(d.Realm)
	buf.WriteByte('\n')
	buf.WriteString(method)
	buf.WriteByte(' ')
	buf.WriteString(path)
	buf.WriteByte('\n')
	buf.WriteString(strconv.FormatInt(ts, 10))
	buf.WriteByte('\n')
	buf.Write(body)
	return crypto.Keccak256Hash(buf.Bytes())
}

// SignAuth returns an AuthHeader value for the given request.
func SignAuth(s *signature.Signer, d AuthDomain, method, path string, ts time.Time, body []byte) (string, error) {
	unix := ts.Unix()
	sig, err := s.Sign(AuthMessage(d, method, path, unix, body))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%s", unix, signature.EncodeHex(sig)), nil
}

func (h *Handler) authDomain() AuthDomain {
	return AuthDomain{Owner: h.relay.Owner(), Realm: h.realm}
}

// authenticate recovers the caller from the auth header and claims the
// signed message so the same header is accepted at most once. The body is
// read and replaced so handlers can decode it again.
func (h *Handler) authenticate(r *http.Request) (common.Address, error) {
	raw := r.Header.Get(AuthHeader)
	if raw == "" {
		return common.Address{}, errMissingAuth
	}

	tsPart, sigPart, ok := strings.Cut(raw, ".")
	if !ok {
		return common.Address{}, errMalformed
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return common.Address{}, errMalformed
	}
	sig, err := signature.ParseHex(sigPart)
	if err != nil {
		return common.Address{}, errMalformed
	}

	now := h.clock.Now()
	signedAt := time.Unix(ts, 0)
	drift := now.Sub(signedAt)
	if drift > h.skew || drift < -h.skew {
		return common.Address{}, errStale
	}

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		r.Body.Close()
		if err != nil {
			return common.Address{}, fmt.Errorf("read body: %w", err)
		}
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	msg := AuthMessage(h.authDomain(), r.Method, r.URL.Path, ts, body)
	caller, err := signature.Recover(signature.Digest(msg), sig)
	if err != nil {
		return common.Address{}, errMalformed
	}

	// Past signedAt+skew the timestamp check rejects the header on its own.
	if !h.seen.claim(msg, signedAt.Add(h.skew), now) {
		return common.Address{}, errReplayed
	}
	return caller, nil
}

// requireOwner authenticates the caller and attaches it to the request
// context. Whether the caller is the owner is decided by the relay.
func (h *Handler) requireOwner(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := h.authenticate(r)
		if err != nil {
			h.logger.WarnContext(r.Context(), "admin auth rejected",
				"path", r.URL.Path,
				"error", err,
			)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r.WithContext(scope.WithCaller(r.Context(), caller)))
	})
}
