package types

// Column layout of the posts worksheet and the CSV mirror.
// Column order is part of the store contract: changing it resets existing sheets.
const (
	ColScrapeTime = iota
	ColImage
	ColNickname
	ColPage
	ColText
	ColGender
	ColCity
	ColExpiry
	ColReply
	ColReplyStatus
	ColComment1
	ColComment2
	ColComment3
	ColProfileLink
	ColPostLink
	ColComment1Link
	ColComment2Link
	ColComment3Link
	ColImageLink
	ColTags
	ColSeen
)

// PostHeaders is the exact header row of the posts worksheet
var PostHeaders = []string{
	"SCRAPE_TIME",
	"A_IMAGE",
	"B_NICKNAME",
	"C_PAGE#",
	"D_TEXT-P",
	"E_GENDER",
	"F_CITY",
	"G_EXPIRY",
	"H_REPLY",
	"I_R-ON",
	"J_COM1",
	"K_COM2",
	"L_COM3",
	"M_PRO-L",
	"N_POST-L",
	"O_COM1-L",
	"P_COM2-L",
	"Q_COM3-L",
	"R_IMAGE-L",
	"S_TAGS",
	"T_SEEN",
}

// AnalyticsHeaders is the header row of the analytics worksheet
var AnalyticsHeaders = []string{
	"NICKNAME",
	"TOTAL_POSTS",
	"TOTAL_COMMENTS",
	"MOST_ACTIVE_COMMENTER",
	"COMMENT_DIVERSITY",
	"GENDER",
	"CITY",
	"TODAY_ACTIVITY",
	"POST_LINKS",
}
