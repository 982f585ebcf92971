package main

import "context"

// revokeCertificate invalidates a certificate. The row is kept so the
// public verification endpoint can report it as revoked.
func (cli *commandLine) revokeCertificate(id string) error {
	cert, err := cli.certRepo.SetCertificateValidity(context.Background(), id, false)
	if err != nil {
		return err
	}
	logger.Printf("revoked certificate %s (code %s)\n", cert.ID, cert.Code)
	return nil
}
