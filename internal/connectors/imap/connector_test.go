package imap

import (
	"testing"

	"github.com/emersion/go-imap"
)

func TestHasPDFPart(t *testing.T) {
	mixed := &imap.BodyStructure{
		MIMEType:    "multipart",
		MIMESubType: "mixed",
		Parts: []*imap.BodyStructure{
			{MIMEType: "text", MIMESubType: "plain"},
			{MIMEType: "application", MIMESubType: "octet-stream", Disposition: "attachment", DispositionParams: map[string]string{"filename": "SDB_Lack.PDF"}},
		},
	}
	cases := []struct {
		name string
		bs   *imap.BodyStructure
		want bool
	}{
		{"nil", nil, false},
		{"plain text", &imap.BodyStructure{MIMEType: "text", MIMESubType: "plain"}, false},
		{"pdf type", &imap.BodyStructure{MIMEType: "application", MIMESubType: "PDF"}, true},
		{"pdf file name", mixed, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasPDFPart(tc.bs); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestFormatAddresses(t *testing.T) {
	got := formatAddresses([]*imap.Address{
		{PersonalName: "Vertrieb", MailboxName: "sales", HostName: "lack.de"},
		nil,
		{MailboxName: "info", HostName: "lack.de"},
	})
	if got != "Vertrieb <sales@lack.de>, info@lack.de" {
		t.Fatalf("got %q", got)
	}
}
