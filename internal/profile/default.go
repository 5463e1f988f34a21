package profile

// Default is the wallet test application: a DF named walletTest holding every key
// needed for the purse and PIN commands, with one loop file per purse.
func Default() *Profile {
	return &Profile{
		Terminal: HexBytes{0x66, 0x66, 0x66, 0x66, 0x66, 0x66},
		Application: Application{
			FileID:     0x3F01,
			Space:      0x1500,
			CreatePerm: 0xF0,
			ErasePerm:  0xF0,
			AppID:      0x95,
			Name:       "walletTest",
			KeyFile:    KeyFile{FileID: 0x0000, Space: 0x0200, SID: 0x95, Perm: 0xF0},
			LoopFiles:  LoopFile{Wallet: 0x18, Passbook: 0x19, Size: 0x0517},
		},
		PIN: PIN{Value: HexBytes{0x12, 0x34, 0x56}, ErrorCounter: 0x33},
		Keys: Keys{
			ExternalAuth:   mustHex("F49DC1BA1B4DEB52647186BC59106C0D"),
			Internal:       mustHex("2B8A438742C851566F02D881B09D58C0"),
			LineProtection: mustHex("8A021972BFEC9D152CA9EB82D7D12C09"),
			UnlockPIN:      mustHex("D8F60FA2D791F3A658D27C05458243ED"),
			ChangePIN:      mustHex("FB487A6D1B7CBF1BF84C666B8338376E"),
			Purchase:       mustHex("EB18CE6986C820970E876219052CE0CF"),
			Credit:         mustHex("A9E6E145F5DF09500A58EEF8575D49DB"),
			Debit:          mustHex("97FB4EDA4B5237035946EE62D325D909"),
			Overdraft:      mustHex("94F63C4FAE5E4977D749928AD12BC128"),
			DESEncrypt:     mustHex("C4608B786AF1992343E91A076670AE7C"),
			DESDecrypt:     mustHex("B8D4190C76856901FC686F36AB9B1CE0"),
			DESMAC:         mustHex("46A3EA8B254EE2749CC681050FD0DBCC"),
		},
	}
}

func mustHex(s string) HexBytes {
	var h HexBytes
	for i := 0; i+1 < len(s); i += 2 {
		h = append(h, unhex(s[i])<<4|unhex(s[i+1]))
	}
	return h
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	}
	panic("invalid hex digit " + string(c))
}
