package ocifetch

import (
	"context"
	"errors"

	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// DefaultCredentialStore returns a credential store backed by the Docker
// credential configuration (~/.docker/config.json and credential helpers).
func DefaultCredentialStore() (credentials.Store, error) {
	store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// StaticCredentials returns a read-only store that serves the given
// credential for every registry.
func StaticCredentials(username, password string) credentials.Store {
	return &staticStore{
		cred: auth.Credential{
			Username: username,
			Password: password,
		},
	}
}

type staticStore struct {
	cred auth.Credential
}

func (s *staticStore) Get(_ context.Context, _ string) (auth.Credential, error) {
	return s.cred, nil
}

func (s *staticStore) Put(_ context.Context, _ string, _ auth.Credential) error {
	return errors.New("ocifetch: static credential store is read-only")
}

func (s *staticStore) Delete(_ context.Context, _ string) error {
	return errors.New("ocifetch: static credential store is read-only")
}
