package main

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aasmall/slack-receiver/lib/handler"
	log "github.com/aasmall/slack-receiver/lib/logger"
	"github.com/gorilla/mux"
)

// mockKey is the fixed AES-256 key every mock-kms instance shares.
var mockKey = []byte{
	0x15, 0x7, 0x9c, 0x8f, 0x9, 0xe6, 0x30, 0x0,
	0x39, 0x1, 0x4d, 0x9c, 0xf0, 0x79, 0xd7, 0xcf,
	0xd5, 0x48, 0x39, 0x41, 0x86, 0xf2, 0xf4, 0x50,
	0xbd, 0xa3, 0xcc, 0x46, 0x49, 0x8c, 0xb1, 0xf0}

type kms struct {
	key []byte
	log *log.Logger
}

// Request and response bodies use base64 for binary fields, like Cloud KMS.
type encryptRequest struct {
	Plaintext string `json:"plaintext"`
}
type encryptResponse struct {
	Name       string `json:"name"`
	Ciphertext string `json:"ciphertext"`
}
type decryptRequest struct {
	Ciphertext string `json:"ciphertext"`
}
type decryptResponse struct {
	Plaintext string `json:"plaintext"`
}

const keyPath = "/v1/projects/{project}/locations/{location}/keyRings/{keyring}/cryptoKeys/{key}"

func newRouter(k *kms) *mux.Router {
	r := mux.NewRouter()
	r.Handle(keyPath+":encrypt", handler.Handler{Env: k, H: encryptHandler, Log: k.log}).Methods(http.MethodPost)
	r.Handle(keyPath+":decrypt", handler.Handler{Env: k, H: decryptHandler, Log: k.log}).Methods(http.MethodPost)
	return r
}

func keyName(r *http.Request) string {
	v := mux.Vars(r)
	return "projects/" + v["project"] + "/locations/" + v["location"] + "/keyRings/" + v["keyring"] + "/cryptoKeys/" + v["key"]
}

func encryptHandler(e interface{}, w http.ResponseWriter, r *http.Request) error {
	k := e.(*kms)
	req := &encryptRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	plaintext, err := base64.StdEncoding.DecodeString(req.Plaintext)
	if err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	ciphertext, err := encrypt(k.key, plaintext)
	if err != nil {
		return err
	}
	return writeJSON(w, &encryptResponse{
		Name:       keyName(r),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	})
}

func decryptHandler(e interface{}, w http.ResponseWriter, r *http.Request) error {
	k := e.(*kms)
	req := &decryptRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	ciphertext, err := base64.StdEncoding.DecodeString(req.Ciphertext)
	if err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	plaintext, err := decrypt(k.key, ciphertext)
	if err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	k.log.Debugf("decrypted %d bytes for %s", len(plaintext), keyName(r))
	return writeJSON(w, &decryptResponse{Plaintext: base64.StdEncoding.EncodeToString(plaintext)})
}

func writeJSON(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(v)
}

// encrypt returns iv || AES-CFB(plaintext).
func encrypt(key []byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, aes.BlockSize+len(plaintext))
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(out[aes.BlockSize:], plaintext)
	return out, nil
}

func decrypt(key []byte, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, errors.New("ciphertext block size is too short")
	}
	iv := ciphertext[:aes.BlockSize]
	out := make([]byte, len(ciphertext)-aes.BlockSize)
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(out, ciphertext[aes.BlockSize:])
	return out, nil
}
