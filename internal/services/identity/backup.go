package identity

import (
	"context"
	"errors"
	"fmt"

	"sealkit/internal/crypto"
	"sealkit/internal/domain"
	"sealkit/internal/util/memzero"
)

// BackupPrivateKey encrypts the local private key under password and
// uploads it.
func (s *Session) BackupPrivateKey(ctx context.Context, password string) (err error) {
	defer func() { s.metrics.ObserveLifecycle("backup", err) }()

	raw, ok, err := s.local.Load()
	if err != nil {
		return domain.LocalVaultError(err)
	}
	if !ok {
		return domain.RegistrationRequired(s.identity)
	}
	defer memzero.Zero(raw)

	key, err := crypto.DeriveBackupKey(password, s.identity)
	if err != nil {
		return fmt.Errorf("derive backup key: %w", err)
	}
	defer key.Wipe()
	sealed, err := key.Seal(s.identity, raw)
	if err != nil {
		return fmt.Errorf("seal backup: %w", err)
	}
	if err := s.backups.Store(ctx, s.identity, key.ID, sealed); err != nil {
		if errors.Is(err, domain.ErrBackupExists) {
			return domain.PrivateKeyAlreadyExists(s.identity, err)
		}
		return domain.BackupVaultError(err)
	}
	s.log.Info().Msg("private key backed up")
	return nil
}

// RestorePrivateKey downloads the backup for password and installs it
// locally. It never overwrites an existing local key.
func (s *Session) RestorePrivateKey(ctx context.Context, password string) (err error) {
	defer func() { s.metrics.ObserveLifecycle("restore", err) }()

	exists, err := s.local.Exists()
	if err != nil {
		return domain.LocalVaultError(err)
	}
	if exists {
		return domain.PrivateKeyAlreadyExists(s.identity, nil)
	}

	key, raw, err := s.openBackup(ctx, password)
	if err != nil {
		return err
	}
	key.Wipe()
	defer memzero.Zero(raw)

	priv, err := s.crypto.ImportPrivateKey(raw)
	if err != nil {
		return domain.IntegrityCheckFailed(fmt.Errorf("restored key: %w", err))
	}
	priv.Wipe()

	if err := s.local.Save(raw); err != nil {
		return s.saveError(err)
	}
	s.log.Info().Msg("private key restored from backup")
	return nil
}

// ChangePassword re-encrypts the backup stored under oldPassword with
// newPassword. The key material is unchanged.
func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) (err error) {
	defer func() { s.metrics.ObserveLifecycle("change_password", err) }()

	oldKey, raw, err := s.openBackup(ctx, oldPassword)
	if err != nil {
		return err
	}
	defer oldKey.Wipe()
	defer memzero.Zero(raw)

	newKey, err := crypto.DeriveBackupKey(newPassword, s.identity)
	if err != nil {
		return fmt.Errorf("derive backup key: %w", err)
	}
	defer newKey.Wipe()
	sealed, err := newKey.Seal(s.identity, raw)
	if err != nil {
		return fmt.Errorf("seal backup: %w", err)
	}
	if err := s.backups.Replace(ctx, s.identity, oldKey.ID, newKey.ID, sealed); err != nil {
		if errors.Is(err, domain.ErrBackupExists) {
			return domain.PrivateKeyAlreadyExists(s.identity, err)
		}
		return domain.BackupVaultError(err)
	}
	s.log.Info().Msg("backup password changed")
	return nil
}

// ResetPrivateKeyBackup deletes the backup stored under password.
func (s *Session) ResetPrivateKeyBackup(ctx context.Context, password string) (err error) {
	defer func() { s.metrics.ObserveLifecycle("reset_backup", err) }()

	key, err := crypto.DeriveBackupKey(password, s.identity)
	if err != nil {
		return fmt.Errorf("derive backup key: %w", err)
	}
	defer key.Wipe()
	if err := s.backups.Delete(ctx, s.identity, key.ID); err != nil {
		return domain.BackupVaultError(err)
	}
	s.log.Info().Msg("backup deleted")
	return nil
}

// ResetAllPrivateKeyBackups deletes every backup of the identity.
func (s *Session) ResetAllPrivateKeyBackups(ctx context.Context) (err error) {
	defer func() { s.metrics.ObserveLifecycle("reset_all_backups", err) }()

	if err := s.backups.DeleteAll(ctx, s.identity); err != nil {
		return domain.BackupVaultError(err)
	}
	s.log.Info().Msg("all backups deleted")
	return nil
}

// openBackup fetches and decrypts the backup addressed by password. A wrong
// password addresses a backup that does not exist.
func (s *Session) openBackup(ctx context.Context, password string) (crypto.BackupKey, []byte, error) {
	key, err := crypto.DeriveBackupKey(password, s.identity)
	if err != nil {
		return crypto.BackupKey{}, nil, fmt.Errorf("derive backup key: %w", err)
	}
	sealed, err := s.backups.Fetch(ctx, s.identity, key.ID)
	if err != nil {
		key.Wipe()
		return crypto.BackupKey{}, nil, domain.BackupVaultError(err)
	}
	raw, err := key.Open(s.identity, sealed)
	if err != nil {
		key.Wipe()
		return crypto.BackupKey{}, nil, domain.IntegrityCheckFailed(fmt.Errorf("open backup: %w", err))
	}
	return key, raw, nil
}
