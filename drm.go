package reels

import (
	"encoding/xml"
	"fmt"
)

const (
	// encryptionPath is the standard path for the encryption descriptor.
	encryptionPath = "META-INF/encryption.xml"

	// sinfPath is present in Apple FairPlay protected books.
	sinfPath = "META-INF/sinf.xml"
)

// Font obfuscation algorithm URIs – these do NOT constitute DRM.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true, // IDPF font obfuscation
	"http://ns.adobe.com/pdf/enc#RC":     true, // Adobe font obfuscation
}

type xmlEncryption struct {
	XMLName       xml.Name `xml:"encryption"`
	EncryptedData []struct {
		EncryptionMethod struct {
			Algorithm string `xml:"Algorithm,attr"`
		} `xml:"EncryptionMethod"`
	} `xml:"EncryptedData"`
}

// checkDRM inspects the encryption descriptors. It returns ErrDRMProtected
// when any resource is encrypted with something other than font
// obfuscation, and reports whether font obfuscation alone was found.
// An unparsable encryption.xml is treated as DRM.
func checkDRM(a *Archive) (fontObfuscation bool, err error) {
	if a.HasEntry(sinfPath) {
		return false, fmt.Errorf("%w: FairPlay", ErrDRMProtected)
	}
	if !a.HasEntry(encryptionPath) {
		return false, nil
	}

	data, err := a.ReadEntry(encryptionPath)
	if err != nil {
		return false, err
	}
	var enc xmlEncryption
	if err := xml.Unmarshal(stripBOM(data), &enc); err != nil {
		return false, fmt.Errorf("%w: unreadable %s", ErrDRMProtected, encryptionPath)
	}

	for _, ed := range enc.EncryptedData {
		algo := ed.EncryptionMethod.Algorithm
		if !fontObfuscationAlgorithms[algo] {
			return false, fmt.Errorf("%w: algorithm %s", ErrDRMProtected, algo)
		}
		fontObfuscation = true
	}
	return fontObfuscation, nil
}
