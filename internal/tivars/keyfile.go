package tivars

// Keyfile naming used by the TINET calculator client.
const (
	KeyfileName    = "NetKey.8xv"
	KeyfileVarName = "NETKEY"
	KeyfileComment = "log into TINET"
)

// Keyfile builds the archived NETKEY AppVar holding
// username NUL calcKey NUL.
func Keyfile(username, calcKey string) ([]byte, error) {
	payload := make([]byte, 0, len(username)+len(calcKey)+2)
	payload = append(payload, username...)
	payload = append(payload, 0)
	payload = append(payload, calcKey...)
	payload = append(payload, 0)

	v := AppVar{Name: KeyfileVarName, Data: payload, Archived: true}
	return v.Export(KeyfileComment)
}
