package leaderboard

// Placements of the default 111-position board. Size, font size and text
// color follow from the tier in DefaultSlots.
var defaultPlacements = []placement{
	{1, 521, 392, TierTop3, "#FFC03A"},
	{2, 111, 408, TierTop3, "#181A19"},
	{3, 885, 445, TierTop3, "#FFF4DE"},
	{4, 192, 1063, TierLord, "#EB7723"},
	{5, 370, 1078, TierLord, "#F7DA6A"},
	{6, 549, 1235, TierLord, "#00FF80"},
	{7, 718, 1125, TierLord, "#FF41B3"},
	{8, 877, 1083, TierLord, "#90CCE0"},
	{9, 99, 1331, TierGuard, "#5FB1D3"},
	{10, 205, 1345, TierGuard, "#5FB1D3"},
	{11, 312, 1350, TierGuard, "#5FB1D3"},
	{12, 408, 1332, TierGuard, "#5FB1D3"},
	{13, 576, 1408, TierGuard, "#5FB1D3"},
	{14, 685, 1330, TierGuard, "#5FB1D3"},
	{15, 788, 1338, TierGuard, "#5FB1D3"},
	{16, 892, 1356, TierGuard, "#5FB1D3"},
	{17, 995, 1347, TierGuard, "#5FB1D3"},
	{18, 76, 1557, TierGuard, "#FFFFFF"},
	{19, 179, 1567, TierGuard, "#FFFFFF"},
	{20, 258, 1539, TierGuard, "#FFFFFF"},
	{21, 356, 1546, TierGuard, "#FFFFFF"},
	{22, 458, 1570, TierGuard, "#FFFFFF"},
	{23, 551, 1606, TierGuard, "#FFFFFF"},
	{24, 661, 1598, TierGuard, "#FFFFFF"},
	{25, 778, 1552, TierGuard, "#FFFFFF"},
	{26, 875, 1549, TierGuard, "#FFFFFF"},
	{27, 974, 1570, TierGuard, "#FFFFFF"},
	{28, 145, 1627, TierGuard, "#FFFFFF"},
	{29, 261, 1659, TierGuard, "#FFFFFF"},
	{30, 359, 1619, TierGuard, "#FFFFFF"},
	{31, 471, 1630, TierGuard, "#FFFFFF"},
	{32, 604, 1676, TierGuard, "#FFFFFF"},
	{33, 713, 1662, TierGuard, "#FFFFFF"},
	{34, 803, 1601, TierGuard, "#FFFFFF"},
	{35, 891, 1655, TierGuard, "#FFFFFF"},
	{36, 994, 1662, TierGuard, "#FFFFFF"},
	{37, 86, 1665, TierGuard, "#FFFFFF"},
	{38, 230, 1736, TierGuard, "#FFFFFF"},
	{39, 419, 1666, TierGuard, "#FFFFFF"},
	{40, 802, 1689, TierGuard, "#FFFFFF"},
	{41, 126, 1803, TierGuard, "#FFFFFF"},
	{42, 248, 1824, TierGuard, "#FFFFFF"},
	{43, 395, 1776, TierGuard, "#FFFFFF"},
	{44, 487, 1715, TierGuard, "#FFFFFF"},
	{45, 624, 1769, TierGuard, "#FFFFFF"},
	{46, 736, 1769, TierGuard, "#FFFFFF"},
	{47, 933, 1772, TierGuard, "#FFFFFF"},
	{48, 76, 1891, TierGuard, "#FFFFFF"},
	{49, 208, 1943, TierGuard, "#FFFFFF"},
	{50, 337, 1856, TierGuard, "#FFFFFF"},
	{51, 471, 1838, TierGuard, "#FFFFFF"},
	{52, 582, 1830, TierGuard, "#FFFFFF"},
	{53, 702, 1848, TierGuard, "#FFFFFF"},
	{54, 842, 1796, TierGuard, "#FFFFFF"},
	{55, 1015, 1739, TierGuard, "#FFFFFF"},
	{56, 356, 1960, TierGuard, "#FFFFFF"},
	{57, 477, 1956, TierGuard, "#FFFFFF"},
	{58, 583, 1953, TierGuard, "#FFFFFF"},
	{59, 765, 1898, TierGuard, "#FFFFFF"},
	{60, 689, 1949, TierGuard, "#FFFFFF"},
	{61, 888, 1894, TierGuard, "#FFFFFF"},
	{62, 994, 1863, TierGuard, "#FFFFFF"},
	{63, 113, 2062, TierGuard, "#FFFFFF"},
	{64, 295, 2058, TierGuard, "#FFFFFF"},
	{65, 481, 2062, TierGuard, "#FFFFFF"},
	{66, 596, 2065, TierGuard, "#FFFFFF"},
	{67, 712, 2061, TierGuard, "#FFFFFF"},
	{68, 834, 2075, TierGuard, "#FFFFFF"},
	{69, 943, 2079, TierGuard, "#FFFFFF"},
	{70, 1004, 2037, TierGuard, "#FFFFFF"},
	{71, 1002, 1949, TierGuard, "#FFFFFF"},
	{72, 117, 2124, TierGuard, "#FFFFFF"},
	{73, 240, 2124, TierGuard, "#FFFFFF"},
	{74, 366, 2124, TierGuard, "#FFFFFF"},
	{75, 524, 2127, TierGuard, "#FFFFFF"},
	{76, 652, 2127, TierGuard, "#FFFFFF"},
	{77, 765, 2130, TierGuard, "#FFFFFF"},
	{78, 878, 2140, TierGuard, "#FFFFFF"},
	{79, 984, 2141, TierGuard, "#FFFFFF"},
	{80, 141, 2220, TierGuard, "#FFFFFF"},
	{81, 317, 2216, TierGuard, "#FFFFFF"},
	{82, 505, 2229, TierGuard, "#FFFFFF"},
	{83, 742, 2233, TierGuard, "#FFFFFF"},
	{84, 942, 2237, TierGuard, "#FFFFFF"},
	{85, 1014, 2198, TierGuard, "#FFFFFF"},
	{86, 104, 2358, TierGuard, "#FFFFFF"},
	{87, 277, 2348, TierGuard, "#FFFFFF"},
	{88, 396, 2347, TierGuard, "#FFFFFF"},
	{89, 580, 2338, TierGuard, "#FFFFFF"},
	{90, 705, 2334, TierGuard, "#FFFFFF"},
	{91, 834, 2340, TierGuard, "#FFFFFF"},
	{92, 947, 2353, TierGuard, "#FFFFFF"},
	{93, 110, 2420, TierGuard, "#FFFFFF"},
	{94, 265, 2416, TierGuard, "#FFFFFF"},
	{95, 420, 2416, TierGuard, "#FFFFFF"},
	{96, 617, 2423, TierGuard, "#FFFFFF"},
	{97, 781, 2426, TierGuard, "#FFFFFF"},
	{98, 905, 2422, TierGuard, "#FFFFFF"},
	{99, 1024, 2443, TierGuard, "#FFFFFF"},
	{100, 123, 2537, TierGuard, "#FFFFFF"},
	{101, 376, 2544, TierGuard, "#FFFFFF"},
	{102, 593, 2544, TierGuard, "#FFFFFF"},
	{103, 787, 2550, TierGuard, "#FFFFFF"},
	{104, 984, 2565, TierGuard, "#FFFFFF"},
	{105, 138, 2675, TierGuard, "#FFFFFF"},
	{106, 456, 2668, TierGuard, "#FFFFFF"},
	{107, 711, 2667, TierGuard, "#FFFFFF"},
	{108, 912, 2680, TierGuard, "#FFFFFF"},
	{109, 56, 2871, TierGuard, "#FFFFFF"},
	{110, 409, 2881, TierGuard, "#FFFFFF"},
	{111, 863, 2892, TierGuard, "#FFFFFF"},
}
