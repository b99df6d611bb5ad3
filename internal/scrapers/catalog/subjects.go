package catalog

// DefaultSubjects is used when neither the configuration nor the search
// form yield subject codes.
var DefaultSubjects = []string{
	"AIP", "AAS", "AWP", "ANES", "ANBI", "ANAR", "ANTH", "ANSC", "AAPI", "ASTR",
	"AUD", "BENG", "BNFO", "BIEB", "BICD", "BIPN", "BIBC", "BGGN", "BGJC", "BGRD",
	"BGSE", "BILD", "BIMM", "BISP", "BIOM", "CMM", "CENG", "CHEM", "CLX", "CHIN",
	"CLAS", "CCS", "CLIN", "CLRE", "COGS", "COMM", "COGR", "CSS", "CSE", "COSE",
	"CCE", "CGS", "CAT", "TDDM", "TDHD", "TDMV", "TDPF", "TDTR", "DSC", "DSE",
	"DERM", "DSGN", "DOC", "DDPM", "ECON", "EDS", "ERC", "ECE", "EMED", "ENG",
	"ENVR", "ESYS", "ETIM", "ETHN", "EXPR", "FPM", "FILM", "GPCO", "GPEC", "GPGN",
	"GPIM", "GPLA", "GPPA", "GPPS", "GLBH", "GSS", "HITO", "HIAF", "HIEA", "HIEU",
	"HILA", "HISC", "HISA", "HINE", "HIUS", "HIGL", "HIGR", "HILD", "HDS", "HUM",
	"INTL", "JAPN", "JWSP", "LATI", "LISL", "LIAB", "LIDS", "LIFR", "LIGN", "LIGM",
	"LIHL", "LIIT", "LIPO", "LISP", "LTAM", "LTAF", "LTCO", "LTCS", "LTEU", "LTFR",
	"LTGM", "LTGK", "LTIT", "LTKO", "LTLA", "LTRU", "LTSP", "LTTH", "LTWR", "LTEN",
	"LTWL", "LTEA", "MMW", "MBC", "MATS", "MATH", "MSED", "MAE", "MED", "MUIR",
	"MCWP", "MUS", "NANO", "NEU", "NEUG", "OBG", "OPTH", "ORTH", "PATH", "PEDS",
	"PHAR", "SPPS", "PHIL", "PAE", "PHYS", "PHYA", "POLI", "PSY", "PSYC", "PH",
	"PHB", "RMAS", "RAD", "MGTF", "MGT", "MGTA", "MGTP", "RELI", "RMED", "REV",
	"SPPH", "SOMI", "SOMC", "SIOC", "SIOG", "SIOB", "SIO", "SEV", "SOCG", "SOCE",
	"SOCI", "SE", "SURG", "SYN", "TDAC", "TDDE", "TDDR", "TDGE", "TDGR", "TDHT",
	"TDPW", "TDPR", "TMC", "USP", "UROL", "VIS", "WCWP", "WES",
}
