package entity

// DefaultAliases is the creditor alias table used when no alias file is
// configured. Order matters: more specific rules come first.
func DefaultAliases() []AliasRule {
	return []AliasRule{
		{Match: []string{"ALLY FINANCIAL"}, Canonical: "Ally Financial"},
		{Match: []string{"BANK OF AMERICA"}, Canonical: "Bank of America"},
		{Match: []string{"BARCLAYS"}, Canonical: "Barclays"},
		{Match: []string{"BEST BUY"}, WithAny: []string{"CBNA", "CB NA"}, Canonical: "Best Buy/CBNA"},
		{Match: []string{"CITIZENS BANK", "CITIZENS BK"}, Canonical: "Citizens Bank"},
		{Match: []string{"CORNERSTONE COMMUNITY FCU", "CORNERSTONE COMMUN FCU"}, Canonical: "Cornerstone FCU"},
		{Match: []string{"DISCOVER BANK"}, Canonical: "Discover Bank"},
		{Match: []string{"DISCOVER PERSONAL LOANS"}, Canonical: "Discover Loans"},
		{Match: []string{"JPMCB"}, Canonical: "JPMCB"},
		{Match: []string{"MARINER FINANCE"}, Canonical: "Mariner Finance"},
		{Match: []string{"SEARS"}, WithAny: []string{"CBNA", "CB NA"}, Canonical: "Sears/CBNA"},
		{Match: []string{"THD"}, All: []string{"CBNA"}, Canonical: "THD/CBNA"},
		{Match: []string{"HOME DEPOT"}, WithAny: []string{"CITIBANK", "CBNA"}, Canonical: "THD/CBNA"},
	}
}
