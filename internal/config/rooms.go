package config

// Validation rooms of the S3DIS benchmark.
var defaultValidationRooms = []string{
	"hallway_1", "hallway_6", "hallway_11",
	"office_1", "office_6", "office_11", "office_16", "office_21", "office_26", "office_31", "office_36",
	"WC_2",
	"storage_1", "storage_5",
	"conferenceRoom_2",
	"auditorium_1",
}

// S3DIS panoramas whose camera lies outside the scanned rooms, so no
// trustworthy projection exists for them.
var defaultOutsideImages = []string{
	// Area 1
	"camera_f62548d255d24e6983b698e34b343b60_hallway_8_frame_equirectangular_domain",
	"camera_78d716cac81c4b0d85a90927b159b77e_hallway_4_frame_equirectangular_domain",
	"camera_95fab66e5ca643cc97aaab4647f145e3_hallway_5_frame_equirectangular_domain",
	"camera_684b940fafd64fd98aef16157c8a96e2_hallway_5_frame_equirectangular_domain",
	"camera_24f42d6efff54b09a34897f69fa11064_hallway_5_frame_equirectangular_domain",
	"camera_e0c041d3b2a94769b1dc86935f983f34_WC_1_frame_equirectangular_domain",
	"camera_1edba7eece574027bab1fa5459fd8cd4_WC_1_frame_equirectangular_domain",
	// Area 2
	"camera_b1d0a684de5d4412bae05b5da4bd6058_conferenceRoom_1_frame_equirectangular_domain",
	"camera_e0acda5a8a544aa8bf575ff0b1cc4557_conferenceRoom_1_frame_equirectangular_domain",
	"camera_76f70ab0399b4062a8a174dac4a5b5d4_hallway_5_frame_equirectangular_domain",
	"camera_087a5c7a06ac47db91f0b3239b9a568c_hallway_5_frame_equirectangular_domain",
	"camera_c87ef2a2ea404851a1ed515e39c19ebc_hallway_12_frame_equirectangular_domain",
	// Area 3
	"camera_1672a6a767af4676a441d2872752d6b5_office_10_frame_equirectangular_domain",
	"camera_711a8a2f5d1c477da742bddfe3b6c15a_office_10_frame_equirectangular_domain",
	"camera_fed3d2b0206b428d836acd7d7a44f85b_office_9_frame_equirectangular_domain",
	"camera_83f59b29737047b9a139cebb8612803d_office_9_frame_equirectangular_domain",
	"camera_274fa02e9d7748589a4a3171fdc148cc_office_10_frame_equirectangular_domain",
	"camera_ede7064adbbe490284373cf8c0cf8bae_lounge_2_frame_equirectangular_domain",
	"camera_d911682267cf458a87bdfe2fbd491c46_lounge_2_frame_equirectangular_domain",
	"camera_1c029f7dc23548cab4ac62429f96eb76_lounge_2_frame_equirectangular_domain",
	// Area 4
	"camera_21d093553b30417e80f382f09ff9173c_hallway_1_frame_equirectangular_domain",
	"camera_b9eca4fa258e4160823cf6b1da447c8f_hallway_1_frame_equirectangular_domain",
	"camera_887c83e5e56d4b4db6867ea493615ada_lobby_1_frame_equirectangular_domain",
	"camera_161eb799efd24b548a8760ae98a16736_lobby_1_frame_equirectangular_domain",
	"camera_3f70cae87b464ef9a9ad9a1b6118e8c1_lobby_1_frame_equirectangular_domain",
	"camera_927a307dc7f5439faae8c42a35aa6e4c_lobby_1_frame_equirectangular_domain",
	"camera_39e8345836e64d8d9d3bacde37f5ee12_hallway_2_frame_equirectangular_domain",
	"camera_0e47c7ac0bfe4720bfff75f1a24cfb56_office_19_frame_equirectangular_domain",
	// Area 6
	"camera_7edd2f07f6be4b25bcc4b3bf330146ff_hallway_6_frame_equirectangular_domain",
	"camera_af9f94170d54489d97d974a9cca06856_hallway_6_frame_equirectangular_domain",
	"camera_247d69e9f0e64242a9330d70eca2ab0c_hallway_6_frame_equirectangular_domain",
	"camera_932e85d85fd74cbb8c9e9e818e250a98_hallway_6_frame_equirectangular_domain",
	"camera_29d9a627823449bb8df926f6ee29d946_hallway_6_frame_equirectangular_domain",
	"camera_d1763aa9c28546efa570296046d7be26_hallway_6_frame_equirectangular_domain",
	"camera_051e24918e884291aebf022719ad572a_office_23_frame_equirectangular_domain",
	"camera_a642c69e7dec4c98aacc3595f1259b03_hallway_2_frame_equirectangular_domain",
	"camera_cff198550a97439eae623dd55452c4c0_hallway_2_frame_equirectangular_domain",
	"camera_5917b1f08a0143b0994d8b3946d02343_hallway_2_frame_equirectangular_domain",
	"camera_629e301c74124597bd41c2ebe4b791b7_hallway_2_frame_equirectangular_domain",
	"camera_8c334635cf8147549ddce70664d70a12_office_23_frame_equirectangular_domain",
	"camera_699cc3c1b5084f828605bcfc8ed8264d_office_23_frame_equirectangular_domain",
	"camera_76b92c8b42e844759a4561f3e67e1007_office_23_frame_equirectangular_domain",
	"camera_d3e9dda66f31417c99c2d346b1797ebd_office_23_frame_equirectangular_domain",
	"camera_49e8cb6e01a448809a7eda23eeb9d4e2_hallway_2_frame_equirectangular_domain",
	"camera_87ea116ead10458e85a923d54be70fcb_hallway_2_frame_equirectangular_domain",
}
